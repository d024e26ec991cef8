package main

import "github.com/darmiel/authnd/cmd"

func main() {
	cmd.Execute()
}
