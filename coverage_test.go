package tvmsym_test

import (
	"sync"
	"testing"

	"github.com/benbjohnson/tvmsym"
	"github.com/stretchr/testify/require"
)

func TestCoverage(t *testing.T) {
	c := tvmsym.NewContract()
	c.AddMethod(0, tvmsym.PushInt(1), tvmsym.NewInstr(tvmsym.OpPop))
	c.AddLambda(tvmsym.NewInstr(tvmsym.OpAccept))

	t.Run("Visit", func(t *testing.T) {
		cov := tvmsym.NewCoverage(c)
		covered, total := cov.Count()
		require.Equal(t, 0, covered)
		require.Equal(t, 5, total)
		require.Equal(t, float64(0), cov.Ratio())

		cov.Visit(tvmsym.Location{Block: 0, Index: 1})
		cov.Visit(tvmsym.Location{Block: 0, Index: 2})
		cov.Visit(tvmsym.Location{Block: 0, Index: 1})
		require.True(t, cov.Covered(tvmsym.Location{Block: 0, Index: 1}))
		require.True(t, cov.Covered(tvmsym.Location{Block: 0, Index: 2}))
		require.False(t, cov.Covered(tvmsym.Location{Block: 0, Index: 0}))
		require.False(t, cov.Covered(tvmsym.Location{Block: 1, Index: 0}))

		covered, _ = cov.Count()
		require.Equal(t, 2, covered)
		require.InDelta(t, 0.4, cov.Ratio(), 1e-9)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		cov := tvmsym.NewCoverage(c)
		cov.Visit(tvmsym.Location{Block: 9, Index: 0})
		cov.Visit(tvmsym.Location{Block: -1, Index: 0})
		require.False(t, cov.Covered(tvmsym.Location{Block: 9, Index: 0}))
		covered, _ := cov.Count()
		require.Equal(t, 0, covered)
	})

	t.Run("Merge", func(t *testing.T) {
		a, b := tvmsym.NewCoverage(c), tvmsym.NewCoverage(c)
		a.Visit(tvmsym.Location{Block: 0, Index: 0})
		b.Visit(tvmsym.Location{Block: 0, Index: 0})
		b.Visit(tvmsym.Location{Block: 1, Index: 1})
		a.Merge(b)

		covered, _ := a.Count()
		require.Equal(t, 2, covered)
		require.True(t, a.Covered(tvmsym.Location{Block: 1, Index: 1}))
	})

	t.Run("Concurrent", func(t *testing.T) {
		cov := tvmsym.NewCoverage(c)
		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				cov.Visit(tvmsym.Location{Block: 0, Index: i})
			}(i)
		}
		wg.Wait()

		covered, _ := cov.Count()
		require.Equal(t, 3, covered)
	})
}
