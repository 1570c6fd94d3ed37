package linking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hccommerce/portal/internal/auth/flow"
	"github.com/hccommerce/portal/internal/identity"
)

func links(providers ...string) []identity.Link {
	out := make([]identity.Link, 0, len(providers))
	for _, p := range providers {
		out = append(out, identity.Link{Provider: p, Subject: p + "-sub"})
	}
	return out
}

var required = []string{"discord", "roblox"}

func TestResolve(t *testing.T) {
	cases := []struct {
		name        string
		links       []identity.Link
		wantLinked  []string
		wantMissing []string
		wantExtra   []string
		fully       bool
	}{
		{"none", nil, nil, []string{"discord", "roblox"}, nil, false},
		{"partial", links("discord"), []string{"discord"}, []string{"roblox"}, nil, false},
		{"complete", links("discord", "roblox"), []string{"discord", "roblox"}, nil, nil, true},
		{"complete reversed", links("roblox", "discord"), []string{"discord", "roblox"}, nil, nil, true},
		{"extra provider", links("discord", "roblox", "github"), []string{"discord", "roblox"}, nil, []string{"github"}, true},
		{"only extra", links("github"), nil, []string{"discord", "roblox"}, []string{"github"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := Resolve(tc.links, required)
			assert.Equal(t, tc.wantLinked, st.Linked)
			assert.Equal(t, tc.wantMissing, st.Missing)
			assert.Equal(t, tc.wantExtra, st.Extra)
			assert.Equal(t, tc.fully, st.FullyLinked())
		})
	}
}

func TestDecide(t *testing.T) {
	complete := Resolve(links("discord", "roblox"), required)
	partial := Resolve(links("discord"), required)

	cases := []struct {
		name       string
		hasSession bool
		state      State
		want       Decision
	}{
		{"no session", false, complete, RedirectLogin},
		{"no session partial", false, partial, RedirectLogin},
		{"session incomplete", true, partial, RedirectComplete},
		{"session complete", true, complete, Allow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.hasSession, tc.state))
		})
	}
}

func TestCheckUnlink(t *testing.T) {
	assert.ErrorIs(t, CheckUnlink(links("discord"), "roblox"), flow.ErrNotLinked)
	assert.ErrorIs(t, CheckUnlink(links("discord"), "discord"), flow.ErrLastProvider)
	assert.NoError(t, CheckUnlink(links("discord", "roblox"), "roblox"))
}
