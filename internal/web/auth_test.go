package web

import "testing"

func TestAuthenticator_Enabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"both set", "user", "pass", true},
		{"username only", "user", "", false},
		{"password only", "", "pass", false},
		{"neither", "", "", false},
	}
	for _, tt := range tests {
		if got := NewAuthenticator(tt.username, tt.password).Enabled(); got != tt.want {
			t.Errorf("%s: Enabled() got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestAuthenticator_Verify(t *testing.T) {
	t.Parallel()

	a := NewAuthenticator("user", "pass")
	tests := []struct {
		user, pass string
		want       bool
	}{
		{"user", "pass", true},
		{"user", "wrong", false},
		{"wrong", "pass", false},
		{"", "", false},
		{"user", "pass ", false},
	}
	for _, tt := range tests {
		if got := a.Verify(tt.user, tt.pass); got != tt.want {
			t.Errorf("Verify(%q, %q): got %v, want %v", tt.user, tt.pass, got, tt.want)
		}
	}
}
