package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "badgeissuer/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant:
// "addresses carry the right entity prefix and a 32 char lowercase hex body"
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseResourceAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong entity kind", func(t *testing.T) {
		_, err := ParseResourceAddress(NewComponentAddress().String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects uppercase body", func(t *testing.T) {
		addr := NewResourceAddress().String()
		_, err := ParseResourceAddress("resource_" + strings.ToUpper(addr[len("resource_"):]))
		require.Error(t, err)
	})

	t.Run("accepts generated addresses", func(t *testing.T) {
		res := NewResourceAddress()
		parsed, err := ParseResourceAddress(res.String())
		require.NoError(t, err)
		assert.Equal(t, res, parsed)

		comp := NewComponentAddress()
		parsedComp, err := ParseComponentAddress(comp.String())
		require.NoError(t, err)
		assert.Equal(t, comp, parsedComp)

		acct := NewAccountAddress()
		parsedAcct, err := ParseAccountAddress(acct.String())
		require.NoError(t, err)
		assert.Equal(t, acct, parsedAcct)
	})
}

func TestParseAddress_SecurityInvariants(t *testing.T) {
	valid := NewComponentAddress().String()
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "component_'; DROP TABLE components;--", true},
		{"Path traversal", "component_../../../etc/passwd", true},
		{"Null byte injection", valid[:20] + "\x00" + valid[21:], true},
		{"Oversized input", "component_" + strings.Repeat("a", 1000), true},
		{"Whitespace padded", " " + valid + " ", true},
		{"Valid", valid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseComponentAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseGlobalAddress(t *testing.T) {
	comp := NewComponentAddress()
	got, err := ParseGlobalAddress(comp.String())
	require.NoError(t, err)
	assert.Equal(t, comp.Global(), got)

	acct := NewAccountAddress()
	got, err = ParseGlobalAddress(acct.String())
	require.NoError(t, err)
	assert.Equal(t, acct.Global(), got)

	_, err = ParseGlobalAddress("validator_0123")
	require.Error(t, err)
}

func TestRUID(t *testing.T) {
	t.Run("generated ids parse", func(t *testing.T) {
		id := NewRUID()
		assert.Len(t, id.String(), 69)
		parsed, err := ParseNonFungibleLocalID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("generated ids are distinct", func(t *testing.T) {
		seen := make(map[NonFungibleLocalID]struct{}, 1000)
		for range 1000 {
			id := NewRUID()
			_, dup := seen[id]
			require.False(t, dup)
			seen[id] = struct{}{}
		}
	})

	t.Run("every group is fully random", func(t *testing.T) {
		// Nibbles a UUIDv4 would pin: version and variant of each half.
		pinned := []struct{ group, offset int }{{0, 12}, {1, 0}, {2, 12}, {3, 0}}
		varied := make([]map[byte]struct{}, len(pinned))
		for i := range varied {
			varied[i] = map[byte]struct{}{}
		}
		for range 256 {
			groups := strings.Split(strings.Trim(NewRUID().String(), "{}"), "-")
			for i, p := range pinned {
				varied[i][groups[p.group][p.offset]] = struct{}{}
			}
		}
		for i, p := range pinned {
			assert.Greater(t, len(varied[i]), 4, "group %d offset %d", p.group, p.offset)
		}
	})

	t.Run("rejects malformed ids", func(t *testing.T) {
		for _, input := range []string{"", "#1#", "{abc}", strings.Trim(NewRUID().String(), "{}")} {
			_, err := ParseNonFungibleLocalID(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})
}
