package wire

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 200; i++ {
		bodyLen := rng.Intn(2048)
		body := make([]byte, bodyLen)
		rng.Read(body)

		opcode := Opcode(rng.Intn(1 << 16))
		offset := rng.Intn(4096)

		var codec Codec
		encoded, err := codec.Encode(opcode, body, offset)
		require.NoError(t, err)

		frame, consumed, ok, err := TryParse(encoded, offset)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, len(encoded), consumed)
		assert.Equal(t, opcode, frame.Header.Opcode)
		assert.Equal(t, uint16(bodyLen), frame.Header.Length)
		assert.Equal(t, body, frame.Body)
	}
}

func TestTryParse_WaitsForMoreBytes(t *testing.T) {
	var codec Codec
	encoded, err := codec.Encode(OpHeartbeat, []byte("hello"), 0)
	require.NoError(t, err)

	// Fewer than the header.
	_, _, ok, err := TryParse(encoded[:4], 0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Header present, body not yet fully buffered.
	_, _, ok, err = TryParse(encoded[:HeaderLength+4], 0)
	require.NoError(t, err)
	assert.False(t, ok)

	// Whole frame present.
	_, consumed, ok, err := TryParse(encoded, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, len(encoded), consumed)
}

func TestTryParse_BadChecksum(t *testing.T) {
	var codec Codec
	encoded, err := codec.Encode(OpHeartbeat, []byte("hello"), 0)
	require.NoError(t, err)

	// Flip a body bit after obfuscation to corrupt the digest.
	encoded[len(encoded)-1] ^= 0xFF

	_, _, _, err = TryParse(encoded, 0)
	assert.ErrorIs(t, err, ErrBadChecksum)
}

// TestObfuscationOffsetShift covers spec.md §8 property 2: decoding a byte
// sequence offset-shifted by any multiple of 4 is equivalent to keying
// from offset 0 of that sub-sequence, since the key itself is 4 bytes long.
func TestObfuscationOffsetShift(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 50; i++ {
		data := make([]byte, 32)
		rng.Read(data)

		shift := rng.Intn(16) * 4

		a := append([]byte(nil), data...)
		Deobfuscate(a, shift)

		b := append([]byte(nil), data...)
		Deobfuscate(b, 0)

		assert.Equal(t, a, b)
	}
}

func TestPacketCountMonotonic(t *testing.T) {
	var codec Codec
	var last uint32
	for i := 0; i < 10; i++ {
		encoded, err := codec.Encode(OpHeartbeat, nil, 0)
		require.NoError(t, err)
		header, err := ParseHeader(Deobfuscate(append([]byte(nil), encoded[:HeaderLength]...), 0))
		require.NoError(t, err)
		assert.Greater(t, header.PacketCount, last)
		last = header.PacketCount
	}
}

func TestHeartbeatEchoedVerbatim(t *testing.T) {
	// The codec half of the heartbeat echo: a heartbeat body survives an
	// encode/parse round trip byte for byte (spec.md §4.1).
	var codec Codec
	body := []byte{1, 2, 3, 4}
	encoded, err := codec.Encode(OpHeartbeat, body, 0)
	require.NoError(t, err)

	frame, _, ok, err := TryParse(encoded, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, body, frame.Body)
}
