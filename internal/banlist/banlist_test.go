package banlist

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestList_Scenario5 is spec.md §8 scenario S5: "10.0.0.0/8" bans
// 10.1.2.3 but admits 11.0.0.1.
func TestList_Scenario5(t *testing.T) {
	var l List
	require.NoError(t, l.Compile([]string{"10.0.0.0/8"}))

	require.True(t, l.Contains(net.ParseIP("10.1.2.3")))
	require.False(t, l.Contains(net.ParseIP("11.0.0.1")))
}

func TestParseSpec_ImplicitBitsFromNonZeroQuads(t *testing.T) {
	cases := []struct {
		raw      string
		wantBits int
	}{
		{"75.120.4", 24},
		{"75.120", 16},
		{"75", 8},
		{"75.120.4.9", 32},
		{"75.120.4/24", 24},
		// An interior zero quad must not shrink the bit count to the
		// position of the last non-zero quad: two non-zero octets is a
		// /16 regardless of where the zero quad falls.
		{"10.0.5", 16},
		{"10.0.0.9", 16},
	}
	for _, c := range cases {
		spec, err := ParseSpec(c.raw)
		require.NoError(t, err, c.raw)
		require.Equal(t, maskOfBits(c.wantBits), spec.Mask, c.raw)
	}
}

func TestList_CommentsAndBlankLinesIgnored(t *testing.T) {
	var l List
	require.NoError(t, l.Compile([]string{
		"# comment",
		"",
		"192.168.0.0/16",
	}))
	require.True(t, l.Contains(net.ParseIP("192.168.5.5")))
	require.False(t, l.Contains(net.ParseIP("10.0.0.1")))
}
