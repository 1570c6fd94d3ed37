package config

import (
	"errors"
	"testing"

	"github.com/hccommerce/portal/internal/auth/flow"
)

func fakeEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveProvider_OK(t *testing.T) {
	cfg, err := ResolveProvider(fakeEnv(map[string]string{
		EnvIDPDomain:       "tenant.auth.example.com",
		EnvIDPClientID:     "client-123",
		EnvIDPClientSecret: "shh",
		EnvIDPAudience:     " https://api.example.com ",
	}))
	if err != nil {
		t.Fatalf("ResolveProvider err: %v", err)
	}
	if cfg.Domain != "https://tenant.auth.example.com" {
		t.Errorf("Domain = %q", cfg.Domain)
	}
	if cfg.Issuer() != "https://tenant.auth.example.com/" {
		t.Errorf("Issuer = %q", cfg.Issuer())
	}
	if cfg.TokenEndpoint() != "https://tenant.auth.example.com/oauth/token" {
		t.Errorf("TokenEndpoint = %q", cfg.TokenEndpoint())
	}
	if cfg.Audience != "https://api.example.com" {
		t.Errorf("Audience = %q", cfg.Audience)
	}
}

func TestResolveProvider_DomainNormalization(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"tenant.auth.example.com", "https://tenant.auth.example.com"},
		{"tenant.auth.example.com/", "https://tenant.auth.example.com"},
		{"https://tenant.auth.example.com/", "https://tenant.auth.example.com"},
		{"http://localhost:3001", "http://localhost:3001"},
		{"  tenant.auth.example.com  ", "https://tenant.auth.example.com"},
	}
	for _, tc := range cases {
		cfg, err := ResolveProvider(fakeEnv(map[string]string{
			EnvIDPDomain:       tc.raw,
			EnvIDPClientID:     "c",
			EnvIDPClientSecret: "s",
		}))
		if err != nil {
			t.Fatalf("ResolveProvider(%q) err: %v", tc.raw, err)
		}
		if cfg.Domain != tc.want {
			t.Errorf("Domain(%q) = %q, want %q", tc.raw, cfg.Domain, tc.want)
		}
	}
}

func TestResolveProvider_FailsClosed(t *testing.T) {
	cases := []map[string]string{
		{},
		{EnvIDPClientID: "c", EnvIDPClientSecret: "s"},
		{EnvIDPDomain: "d", EnvIDPClientSecret: "s"},
		{EnvIDPDomain: "d", EnvIDPClientID: "c"},
		{EnvIDPDomain: "  ", EnvIDPClientID: "c", EnvIDPClientSecret: "s"},
	}
	for _, env := range cases {
		if _, err := ResolveProvider(fakeEnv(env)); !errors.Is(err, flow.ErrNotConfigured) {
			t.Errorf("env %v: err = %v, want ErrNotConfigured", env, err)
		}
	}
}
