package address

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	cases := []struct {
		raw    string
		agent  string
		domain string
	}{
		{"alice::example.com", "alice", "example.com"},
		{"  Bob::Example.COM  ", "bob", "example.com"},
		{"a::b", "a", "b"},
		{"agent-1_2::sub.domain-name.io", "agent-1_2", "sub.domain-name.io"},
	}

	for _, tc := range cases {
		addr, err := Parse(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.agent, addr.Agent())
		assert.Equal(t, tc.domain, addr.Domain())
		assert.Equal(t, tc.agent+"::"+tc.domain, addr.String())
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{
		"",
		"noseparator",
		"::missingagent",
		"agent::",
		"Agent::domain with space",
		"-startswithdash::example.com",
		"agent::-example.com",
		strings.Repeat("a", 65) + "::example.com",
		strings.Repeat("a", 120) + "::" + strings.Repeat("b", 120) + ".com",
	}

	for _, raw := range cases {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
		var invalid *InvalidAddressError
		assert.ErrorAs(t, err, &invalid)
	}
}

// parse(render(a)) == a for every valid address.
func TestParseRenderRoundTrip(t *testing.T) {
	raws := []string{"alice::example.com", "bob-2::a.b.c", "z::z"}
	for _, raw := range raws {
		a, err := Parse(raw)
		require.NoError(t, err)

		b, err := Parse(a.String())
		require.NoError(t, err)

		assert.True(t, a.Equal(b))
	}
}

func TestMaxFullLength(t *testing.T) {
	agent := strings.Repeat("a", 64)
	domain := strings.Repeat("b", MaxFullLength-len(agent)-2-1) + ".c"
	raw := agent + "::" + domain
	if len(raw) <= MaxFullLength {
		_, err := Parse(raw)
		assert.NoError(t, err)
	}
}
