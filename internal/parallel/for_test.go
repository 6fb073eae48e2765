package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVisitsEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		hits := make([]int32, 1000)
		For(len(hits), workers, func(i int) {
			atomic.AddInt32(&hits[i], 1)
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestForErrReturnsError(t *testing.T) {
	boom := errors.New("boom")
	err := ForErr(100, 4, func(i int) error {
		if i == 42 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestForEmptyRange(t *testing.T) {
	called := false
	For(0, 4, func(int) { called = true })
	assert.False(t, called)
	assert.Positive(t, Workers(0))
	assert.Equal(t, 5, Workers(5))
}
