package core

import "testing"

func TestWebservice_Identifiers(t *testing.T) {
	tests := []struct {
		name           string
		webservice     Webservice
		wantName       string
		wantResourceID string
		wantStatusID   string
	}{
		{
			name:           "With Service ID",
			webservice:     NewWebservice("cucumber", "authn-oidc/service1"),
			wantName:       "authn-oidc/service1",
			wantResourceID: "cucumber:webservice:conjur/authn-oidc/service1",
			wantStatusID:   "cucumber:webservice:conjur/authn-oidc/service1/status",
		},
		{
			name:           "Without Service ID",
			webservice:     NewWebservice("cucumber", "authn"),
			wantName:       "authn",
			wantResourceID: "cucumber:webservice:conjur/authn",
			wantStatusID:   "cucumber:webservice:conjur/authn/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.webservice.Name(); got != tt.wantName {
				t.Errorf("Name() = %v, want %v", got, tt.wantName)
			}
			if got := tt.webservice.ResourceID(); got != tt.wantResourceID {
				t.Errorf("ResourceID() = %v, want %v", got, tt.wantResourceID)
			}
			if got := tt.webservice.StatusWebservice().ResourceID(); got != tt.wantStatusID {
				t.Errorf("StatusWebservice().ResourceID() = %v, want %v", got, tt.wantStatusID)
			}
		})
	}
}

func TestWebservice_VariableID(t *testing.T) {
	ws := NewWebservice("cucumber", "authn-oidc/okta")
	want := "cucumber:variable:conjur/authn-oidc/okta/provider-uri"
	if got := ws.VariableID("provider-uri"); got != want {
		t.Errorf("VariableID() = %v, want %v", got, want)
	}
}

func TestRole_Username(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "cucumber:user:alice", want: "alice"},
		{id: "cucumber:host:apps/frontend", want: "host/apps/frontend"},
		{id: "cucumber:user:admin", want: "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := (Role{ID: tt.id}).Username(); got != tt.want {
				t.Errorf("Username() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRoleIDFromLogin(t *testing.T) {
	if got := RoleIDFromLogin("cucumber", "alice"); got != "cucumber:user:alice" {
		t.Errorf("RoleIDFromLogin(alice) = %v", got)
	}
	if got := RoleIDFromLogin("cucumber", "host/apps/frontend"); got != "cucumber:host:apps/frontend" {
		t.Errorf("RoleIDFromLogin(host/...) = %v", got)
	}
}
