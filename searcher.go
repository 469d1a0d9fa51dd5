package tvmsym

import (
	"math/rand"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Searcher represents a strategy for finding the next execution state to execute.
type Searcher interface {
	// Returns the next state to explore.
	SelectState() *ExecutionState

	// Adds states to the current searcher.
	AddState(state *ExecutionState)
}

// Searcher names accepted by NewSearcher.
const (
	SearcherDFS        = "dfs"
	SearcherBFS        = "bfs"
	SearcherRandom     = "random"
	SearcherRandomPath = "random-path"
	SearcherTarget     = "target"
)

// NewSearcher returns a searcher by name. Targets are only used by the
// target searcher.
func NewSearcher(name string, seed int64, targets []Location) (Searcher, error) {
	switch name {
	case "", SearcherDFS:
		return NewDFSSearcher(), nil
	case SearcherBFS:
		return NewBFSSearcher(), nil
	case SearcherRandom:
		return NewRandomSearcher(rand.New(rand.NewSource(seed))), nil
	case SearcherRandomPath:
		return NewRandomPathSearcher(rand.New(rand.NewSource(seed))), nil
	case SearcherTarget:
		return NewTargetSearcher(targets...), nil
	default:
		return nil, errors.Errorf("unknown searcher: %q", name)
	}
}

var _ Searcher = (*MultiSearcher)(nil)

// MultiSearcher represents a Searcher that chooses a searcher round-robin.
// A state added once is selected once, by whichever searcher reaches it first.
type MultiSearcher struct {
	searchers []Searcher
	index     int
	pending   map[*ExecutionState]struct{}
}

// NewMultiSearcher returns a new instance of MultiSearcher.
func NewMultiSearcher(searchers ...Searcher) *MultiSearcher {
	return &MultiSearcher{
		searchers: searchers,
		pending:   make(map[*ExecutionState]struct{}),
	}
}

// SelectState returns the next state to explore from the next searcher.
func (s *MultiSearcher) SelectState() *ExecutionState {
	for len(s.pending) > 0 {
		searcher := s.searchers[s.index]
		if s.index++; s.index >= len(s.searchers) {
			s.index = 0
		}

		// Skip states already selected through another searcher.
		for state := searcher.SelectState(); state != nil; state = searcher.SelectState() {
			if _, ok := s.pending[state]; ok {
				delete(s.pending, state)
				return state
			}
		}
	}
	return nil
}

// AddState adds a new state to the searcher.
func (s *MultiSearcher) AddState(state *ExecutionState) {
	if _, ok := s.pending[state]; ok {
		return
	}
	s.pending[state] = struct{}{}
	for _, searcher := range s.searchers {
		searcher.AddState(state)
	}
}

// DFSSearcher represents a searcher with a depth-first search strategy.
type DFSSearcher struct {
	states []*ExecutionState
}

// NewDFSSearcher returns a new instance of DFSSearcher.
func NewDFSSearcher() *DFSSearcher {
	return &DFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *DFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[len(s.states)-1]
	s.states = s.states[:len(s.states)-1]
	return state
}

// AddState adds a new state to the searcher.
func (s *DFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// BFSSearcher represents a searcher with a breadth-first search strategy.
type BFSSearcher struct {
	states []*ExecutionState
}

// NewBFSSearcher returns a new instance of BFSSearcher.
func NewBFSSearcher() *BFSSearcher {
	return &BFSSearcher{}
}

// SelectState returns the next execution state to explore.
func (s *BFSSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	state := s.states[0]
	s.states = s.states[1:]
	return state
}

// AddState adds a new state to the searcher.
func (s *BFSSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

type RandomSearcher struct {
	states []*ExecutionState
	rand   *rand.Rand
}

func NewRandomSearcher(rand *rand.Rand) *RandomSearcher {
	return &RandomSearcher{
		rand: rand,
	}
}

// SelectState returns a random execution state to explore.
func (s *RandomSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}
	i := s.rand.Intn(len(s.states))
	state := s.states[i]
	s.states = append(s.states[:i], s.states[i+1:]...)
	return state
}

// AddState adds a new state to the searcher.
func (s *RandomSearcher) AddState(state *ExecutionState) {
	s.states = append(s.states, state)
}

// RandomPathSearcher randomly walks the fork tree from its root down to a
// pending state, choosing uniformly among the subtrees that hold one.
// States high in the tree are therefore favored over deep forks.
type RandomPathSearcher struct {
	rand  *rand.Rand
	root  pathNode
	nodes map[*ExecutionState]*pathNode
}

// pathNode mirrors a state of the fork tree. Weight counts the pending
// states in its subtree.
type pathNode struct {
	parent   *pathNode
	children []*pathNode
	state    *ExecutionState
	pending  bool
	weight   int
}

// NewRandomPathSearcher returns a new instance of RandomPathSearcher.
func NewRandomPathSearcher(rand *rand.Rand) *RandomPathSearcher {
	return &RandomPathSearcher{
		rand:  rand,
		nodes: make(map[*ExecutionState]*pathNode),
	}
}

// SelectState returns a random pending leaf of the fork tree.
func (s *RandomPathSearcher) SelectState() *ExecutionState {
	if s.root.weight == 0 {
		return nil
	}

	n := &s.root
	for !n.pending {
		var candidates []*pathNode
		for _, child := range n.children {
			if child.weight > 0 {
				candidates = append(candidates, child)
			}
		}
		n = candidates[s.rand.Intn(len(candidates))]
	}

	n.pending = false
	for p := n; p != nil; p = p.parent {
		p.weight--
	}
	return n.state
}

// AddState adds a new state to the searcher.
func (s *RandomPathSearcher) AddState(state *ExecutionState) {
	n := s.node(state)
	if n.pending {
		return
	}
	n.pending = true
	for p := n; p != nil; p = p.parent {
		p.weight++
	}
}

// node returns the tree node of state, creating the nodes of its ancestors
// as needed.
func (s *RandomPathSearcher) node(state *ExecutionState) *pathNode {
	if state == nil {
		return &s.root
	} else if n := s.nodes[state]; n != nil {
		return n
	}

	parent := s.node(state.Parent())
	n := &pathNode{parent: parent, state: state}
	parent.children = append(parent.children, n)
	s.nodes[state] = n
	return n
}

// TargetSearcher prioritizes states that can still reach a target location
// within their current block. States with no target ahead of them are
// explored depth-first.
type TargetSearcher struct {
	states  []*ExecutionState
	targets mapset.Set[Location]
	reached mapset.Set[Location]
}

// NewTargetSearcher returns a new instance of TargetSearcher.
func NewTargetSearcher(targets ...Location) *TargetSearcher {
	return &TargetSearcher{
		targets: mapset.NewThreadUnsafeSet(targets...),
		reached: mapset.NewThreadUnsafeSet[Location](),
	}
}

// Reached returns the targets executed by the states added so far.
func (s *TargetSearcher) Reached() []Location {
	return s.reached.ToSlice()
}

// SelectState returns the state closest to an unreached target, or the most
// recently added state if none is close to one.
func (s *TargetSearcher) SelectState() *ExecutionState {
	if len(s.states) == 0 {
		return nil
	}

	best, bestDist := len(s.states)-1, -1
	for i, state := range s.states {
		if d := s.distance(state.loc); d >= 0 && (bestDist < 0 || d < bestDist) {
			best, bestDist = i, d
		}
	}

	state := s.states[best]
	s.states = append(s.states[:best], s.states[best+1:]...)
	return state
}

// distance returns the number of instructions from loc to the nearest
// unreached target in the same block, or -1 if there is none.
func (s *TargetSearcher) distance(loc Location) int {
	dist := -1
	s.targets.Each(func(target Location) bool {
		if target.Block != loc.Block || target.Index < loc.Index || s.reached.Contains(target) {
			return false
		}
		if d := target.Index - loc.Index; dist < 0 || d < dist {
			dist = d
		}
		return false
	})
	return dist
}

// AddState adds a new state to the searcher and marks the target it has just
// executed as reached.
func (s *TargetSearcher) AddState(state *ExecutionState) {
	if s.targets.Contains(state.last) {
		s.reached.Add(state.last)
	}
	s.states = append(s.states, state)
}
