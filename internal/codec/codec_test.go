package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTripCases() map[string][]byte {
	return map[string][]byte{
		"empty":      {},
		"small":      []byte("hello"),
		"binary":     {0x00, 0xff, 0x01, 0xfe, 0x80},
		"repetitive": bytes.Repeat([]byte("abcd"), 4096),
	}
}

func TestIdentityRoundTrip(t *testing.T) {
	c := Identity{}
	for name, data := range roundTripCases() {
		t.Run(name, func(t *testing.T) {
			out, err := c.Compress(data)
			require.NoError(t, err)
			back, err := c.Decompress(out)
			require.NoError(t, err)
			assert.Equal(t, data, back)
		})
	}
}

func TestBrotliRoundTrip(t *testing.T) {
	c := NewBrotli()
	for name, data := range roundTripCases() {
		t.Run(name, func(t *testing.T) {
			out, err := c.Compress(data)
			require.NoError(t, err)
			back, err := c.Decompress(out)
			require.NoError(t, err)
			assert.Equal(t, data, back, "round trip must reproduce input")
		})
	}
}

func TestBrotliCompressesRepetitiveInput(t *testing.T) {
	c := NewBrotli()
	data := bytes.Repeat([]byte("abcd"), 4096)
	out, err := c.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(out), len(data))
}

func TestBrotliDecompressRejectsGarbage(t *testing.T) {
	c := NewBrotli()
	_, err := c.Decompress([]byte("definitely not a brotli stream"))
	assert.Error(t, err)
}

func TestZstdRoundTrip(t *testing.T) {
	c, err := NewZstd()
	require.NoError(t, err)
	for name, data := range roundTripCases() {
		t.Run(name, func(t *testing.T) {
			out, err := c.Compress(data)
			require.NoError(t, err)
			back, err := c.Decompress(out)
			require.NoError(t, err)
			assert.Equal(t, data, back)
		})
	}
}

func TestZstdDecompressRejectsGarbage(t *testing.T) {
	c, err := NewZstd()
	require.NoError(t, err)
	_, err = c.Decompress([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Error(t, err)
}
