package addressbook_test

import (
	"testing"

	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercases", "12 High St, Toronto ON", "12 high st, toronto on"},
		{"trims", "  12 High St  ", "12 high st"},
		{"collapses whitespace", "12   High\t St", "12 high st"},
		{"collapses newlines", "12 High St\nSuite 4", "12 high st suite 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := addressbook.Canonicalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalize_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		_, err := addressbook.Canonicalize(raw)
		assert.ErrorIs(t, err, addressbook.ErrEmptyAddress)
	}
}

func TestKey_EquivalentInputsCollide(t *testing.T) {
	a, err := addressbook.Canonicalize("12 High St, Toronto")
	require.NoError(t, err)
	b, err := addressbook.Canonicalize("  12  HIGH st,   Toronto ")
	require.NoError(t, err)

	assert.Equal(t, addressbook.Key("freightcom", a), addressbook.Key("freightcom", b))
}

func TestKey_CarrierScoped(t *testing.T) {
	canonical, err := addressbook.Canonicalize("12 High St")
	require.NoError(t, err)

	// The same address registered with two carriers is two entries.
	assert.NotEqual(t,
		addressbook.Key("freightcom", canonical),
		addressbook.Key("canadapost", canonical),
	)
}

func TestKey_Deterministic(t *testing.T) {
	k1 := addressbook.Key("freightcom", "12 high st")
	k2 := addressbook.Key("freightcom", "12 high st")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64, "sha-256 hex digest")
}
