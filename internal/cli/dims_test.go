package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDims(t *testing.T) {
	d, err := ParseDims("6:6:1")
	require.NoError(t, err)
	assert.Equal(t, [3]int{6, 6, 1}, d)

	d, err = ParseDims("24")
	require.NoError(t, err)
	assert.Equal(t, [3]int{24, 24, 24}, d)

	for _, bad := range []string{"", "6:6", "6:x:1", "0:6:6", "1:2:3:4"} {
		_, err := ParseDims(bad)
		assert.Error(t, err, bad)
	}
}
