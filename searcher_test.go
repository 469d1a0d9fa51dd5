package tvmsym_test

import (
	"math/rand"
	"testing"

	"github.com/benbjohnson/tvmsym"
	"github.com/stretchr/testify/require"
)

// NewStates returns n independent initial states of a three instruction method.
func NewStates(tb testing.TB, n int) (*tvmsym.Executor, []*tvmsym.ExecutionState) {
	tb.Helper()

	e := NewExecutor(NewMethod(tvmsym.PushInt(1), tvmsym.PushInt(2), tvmsym.PushInt(3)))
	states := make([]*tvmsym.ExecutionState, n)
	for i := range states {
		state, err := e.InitialState(0)
		require.NoError(tb, err)
		states[i] = state
	}
	return e, states
}

// SelectAll drains the searcher.
func SelectAll(s tvmsym.Searcher) []*tvmsym.ExecutionState {
	var a []*tvmsym.ExecutionState
	for state := s.SelectState(); state != nil; state = s.SelectState() {
		a = append(a, state)
	}
	return a
}

func TestDFSSearcher(t *testing.T) {
	_, states := NewStates(t, 3)
	s := tvmsym.NewDFSSearcher()
	require.Nil(t, s.SelectState())
	for _, state := range states {
		s.AddState(state)
	}
	require.Equal(t, []*tvmsym.ExecutionState{states[2], states[1], states[0]}, SelectAll(s))
}

func TestBFSSearcher(t *testing.T) {
	_, states := NewStates(t, 3)
	s := tvmsym.NewBFSSearcher()
	for _, state := range states {
		s.AddState(state)
	}
	require.Equal(t, states, SelectAll(s))
}

func TestRandomSearcher(t *testing.T) {
	_, states := NewStates(t, 5)
	s := tvmsym.NewRandomSearcher(rand.New(rand.NewSource(0)))
	for _, state := range states {
		s.AddState(state)
	}
	require.ElementsMatch(t, states, SelectAll(s))
}

func TestRandomPathSearcher(t *testing.T) {
	_, states := NewStates(t, 1)
	root := states[0]
	a, b := root.Fork(nil), root.Fork(nil)
	c, d := a.Fork(nil), a.Fork(nil)

	s := tvmsym.NewRandomPathSearcher(rand.New(rand.NewSource(1)))
	require.Nil(t, s.SelectState())
	s.AddState(b)
	s.AddState(c)
	s.AddState(d)
	s.AddState(c)
	require.ElementsMatch(t, []*tvmsym.ExecutionState{b, c, d}, SelectAll(s))

	// A selected state may be added again once it is stepped.
	s.AddState(d)
	require.Equal(t, d, s.SelectState())
	require.Nil(t, s.SelectState())
}

func TestMultiSearcher(t *testing.T) {
	_, states := NewStates(t, 3)
	s := tvmsym.NewMultiSearcher(tvmsym.NewDFSSearcher(), tvmsym.NewBFSSearcher())
	for _, state := range states {
		s.AddState(state)
	}
	s.AddState(states[0])

	require.Equal(t, []*tvmsym.ExecutionState{states[2], states[0], states[1]}, SelectAll(s))
}

func TestTargetSearcher(t *testing.T) {
	e, states := NewStates(t, 2)
	a, b := states[0], states[1]

	// Advance b to the last push.
	for i := 0; i < 2; i++ {
		next, err := e.Step(b)
		require.NoError(t, err)
		require.Len(t, next, 1)
		b = next[0]
	}
	require.Equal(t, tvmsym.Location{Block: 0, Index: 2}, b.Location())

	t.Run("Closest", func(t *testing.T) {
		s := tvmsym.NewTargetSearcher(tvmsym.Location{Block: 0, Index: 2})
		s.AddState(b)
		s.AddState(a)
		require.Equal(t, []*tvmsym.ExecutionState{b, a}, SelectAll(s))
		require.Empty(t, s.Reached())
	})

	t.Run("Reached", func(t *testing.T) {
		s := tvmsym.NewTargetSearcher(tvmsym.Location{Block: 0, Index: 1})
		s.AddState(b)
		require.Equal(t, []tvmsym.Location{{Block: 0, Index: 1}}, s.Reached())

		// No unreached target remains so the latest state comes first.
		s.AddState(a)
		require.Equal(t, []*tvmsym.ExecutionState{a, b}, SelectAll(s))
	})
}

func TestNewSearcher(t *testing.T) {
	for _, tt := range []struct {
		name string
		want tvmsym.Searcher
	}{
		{"", &tvmsym.DFSSearcher{}},
		{tvmsym.SearcherDFS, &tvmsym.DFSSearcher{}},
		{tvmsym.SearcherBFS, &tvmsym.BFSSearcher{}},
		{tvmsym.SearcherRandom, &tvmsym.RandomSearcher{}},
		{tvmsym.SearcherRandomPath, &tvmsym.RandomPathSearcher{}},
		{tvmsym.SearcherTarget, &tvmsym.TargetSearcher{}},
	} {
		s, err := tvmsym.NewSearcher(tt.name, 0, nil)
		require.NoError(t, err)
		require.IsType(t, tt.want, s)
	}

	_, err := tvmsym.NewSearcher("best-first", 0, nil)
	require.EqualError(t, err, `unknown searcher: "best-first"`)
}
