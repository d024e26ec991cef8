package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "alice", truncate("alice", 10))
	assert.Equal(t, "cucumber:...", truncate("cucumber:user:alice", 12))
	assert.Equal(t, "cu", truncate("cucumber", 2))
}

func TestFormatClaim(t *testing.T) {
	assert.Equal(t, "1970-01-01T00:01:40Z", formatClaim("exp", float64(100)))
	assert.Equal(t, "100", formatClaim("count", float64(100)))
	assert.Equal(t, "[a b]", formatClaim("groups", []any{"a", "b"}))
}

func TestReadArgOrStdin(t *testing.T) {
	v, err := readArgOrStdin([]string{"  secret\n"}, strings.NewReader("ignored"))
	assert.NoError(t, err)
	assert.Equal(t, "secret", v)

	v, err = readArgOrStdin(nil, strings.NewReader("from-stdin\n"))
	assert.NoError(t, err)
	assert.Equal(t, "from-stdin", v)

	v, err = readArgOrStdin([]string{"-"}, strings.NewReader("dash\n"))
	assert.NoError(t, err)
	assert.Equal(t, "dash", v)
}

func TestLogError(t *testing.T) {
	err := logError(assert.AnError, "corr-1", "failed")
	assert.ErrorIs(t, err, BeQuietError{})
}
