package redirect

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/profile", "/profile"},
		{"/owner/listings?page=2", "/owner/listings?page=2"},
		{"", DefaultTarget},
		{"profile", DefaultTarget},
		{"https://evil.example/phish", DefaultTarget},
		{"//evil.example", DefaultTarget},
		{"/\\evil.example", DefaultTarget},
		{"  /profile", "/profile"},
		{"javascript:alert(1)", DefaultTarget},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeWithDefault(t *testing.T) {
	if got := SanitizeWithDefault("", "/auth/complete"); got != "/auth/complete" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeWithDefault("/x", "/auth/complete"); got != "/x" {
		t.Fatalf("got %q", got)
	}
}
