package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitWork_EvenDivision(t *testing.T) {
	for b := 0; b < 4; b++ {
		count, start, err := SplitWork(100, 4, b)
		require.NoError(t, err)
		assert.Equal(t, 25, count)
		assert.Equal(t, b*25, start)
	}
}

func TestSplitWork_RemainderGoesToLowestBranches(t *testing.T) {
	// 10 units across 3 branches: 4, 3, 3.
	total := 0
	for b := 0; b < 3; b++ {
		count, start, err := SplitWork(10, 3, b)
		require.NoError(t, err)
		assert.Equal(t, start, total)
		total += count
		if b == 0 {
			assert.Equal(t, 4, count)
		} else {
			assert.Equal(t, 3, count)
		}
	}
	assert.Equal(t, 10, total)
}

func TestSplitWork_RejectsInvalidInput(t *testing.T) {
	_, _, err := SplitWork(10, 0, 0)
	assert.Error(t, err)
	_, _, err = SplitWork(10, 3, 3)
	assert.Error(t, err)
}

func TestSplitPairwiseWork_CoversEveryPairExactlyOnce(t *testing.T) {
	const n = 6
	const branches = 4
	seen := make(map[[2]int]bool)
	for b := 0; b < branches; b++ {
		count, start, err := SplitPairwiseWork(n, branches, b)
		require.NoError(t, err)
		for k := 0; k < count; k++ {
			i, j := PairAtIndex(n, start+k)
			seen[[2]int{i, j}] = true
		}
	}
	assert.Len(t, seen, n*(n-1)/2)
}
