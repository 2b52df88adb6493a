package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2}

func payload() []byte {
	return []byte(strings.Repeat(`{"id":"17","values":{"name":"Ada","age":36}}`, 64))
}

func TestCompressDecompress(t *testing.T) {
	for _, alg := range algorithms {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(alg), func(t *testing.T) {
				comp, err := NewCompressor(&Config{Algorithm: alg, Level: level})
				require.NoError(t, err)
				assert.Equal(t, alg, comp.Algorithm())

				packed, err := comp.Compress(payload())
				require.NoError(t, err)
				if alg != None {
					assert.Less(t, len(packed), len(payload()))
				}

				unpacked, err := comp.Decompress(packed)
				require.NoError(t, err)
				assert.Equal(t, payload(), unpacked)
			})
		}
	}
}

func TestStreams(t *testing.T) {
	for _, alg := range algorithms {
		t.Run(string(alg), func(t *testing.T) {
			comp, err := NewCompressor(&Config{Algorithm: alg, Level: Default})
			require.NoError(t, err)

			var packed bytes.Buffer
			require.NoError(t, comp.CompressStream(&packed, bytes.NewReader(payload())))

			var unpacked bytes.Buffer
			require.NoError(t, comp.DecompressStream(&unpacked, &packed))
			assert.Equal(t, payload(), unpacked.Bytes())
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := ParseAlgorithm("zstd")
	require.NoError(t, err)
	assert.Equal(t, Zstd, alg)

	alg, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, alg)

	_, err = ParseAlgorithm("brotli")
	assert.Error(t, err)

	_, err = NewCompressor(&Config{Algorithm: "brotli"})
	assert.Error(t, err)
}

func TestNilConfigUsesDefault(t *testing.T) {
	comp, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, LZ4, comp.Algorithm())
}
