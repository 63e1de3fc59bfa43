package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"512", 512},
		{"64KiB", 64 << 10},
		{"10MB", 10_000_000},
		{"1 MiB", 1 << 20},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var b ByteSize
			require.NoError(t, b.Set(tt.in))
			assert.Equal(t, tt.want, int64(b))
		})
	}

	var b ByteSize
	assert.Error(t, b.Set("lots"))
	assert.Equal(t, "0", b.String())
	assert.Equal(t, "size", b.Type())

	b = 1 << 20
	assert.Equal(t, "1.0 MiB", b.String())
}
