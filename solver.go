package tvmsym

import (
	"encoding/binary"
	"sort"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// Solver represents a logical constraint solver.
type Solver interface {
	// Returns the satisfiability of the set of constraints. If the formula
	// is satisfiable, a value is returned for each variable passed in.
	Solve(constraints []Expr, vars []*VarExpr) (satisfiable bool, values []*ConstantExpr, err error)
}

// DefaultSolverCacheSize is the number of results kept by a SolverCache.
const DefaultSolverCacheSize = 4096

// SolverCache holds solver results keyed by a fingerprint of the constraint
// set. It is safe for concurrent use and may be shared between solvers.
type SolverCache struct {
	cache *lru.Cache

	hits   int64
	misses int64
}

// NewSolverCache returns a cache holding up to size results.
func NewSolverCache(size int) (*SolverCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "solver cache")
	}
	return &SolverCache{cache: cache}, nil
}

// Stats returns the number of cache hits & misses.
func (c *SolverCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

type solverResult struct {
	satisfiable bool
	values      []*ConstantExpr
}

// Fingerprint returns a hash of the constraints, independent of their order,
// and of the requested variables.
func Fingerprint(constraints []Expr, vars []*VarExpr) uint64 {
	hashes := make([]uint64, len(constraints))
	for i, expr := range constraints {
		hashes[i] = xxhash.Sum64String(expr.String())
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	h := xxhash.New()
	var buf [8]byte
	for _, v := range hashes {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	h.WriteString("|")
	for _, v := range vars {
		h.WriteString(v.String())
	}
	return h.Sum64()
}

var _ Solver = (*CachingSolver)(nil)

// CachingSolver wraps a solver and reuses results for identical queries.
type CachingSolver struct {
	Solver Solver
	Cache  *SolverCache
}

// NewCachingSolver returns a new instance of CachingSolver.
func NewCachingSolver(solver Solver, cache *SolverCache) *CachingSolver {
	return &CachingSolver{Solver: solver, Cache: cache}
}

// Solve returns a cached result or delegates to the underlying solver.
// Failed queries are not cached.
func (s *CachingSolver) Solve(constraints []Expr, vars []*VarExpr) (bool, []*ConstantExpr, error) {
	key := Fingerprint(constraints, vars)
	if v, ok := s.Cache.cache.Get(key); ok {
		atomic.AddInt64(&s.Cache.hits, 1)
		result := v.(solverResult)
		return result.satisfiable, result.values, nil
	}
	atomic.AddInt64(&s.Cache.misses, 1)

	satisfiable, values, err := s.Solver.Solve(constraints, vars)
	if err != nil {
		return false, nil, err
	}
	s.Cache.cache.Add(key, solverResult{satisfiable: satisfiable, values: values})
	return satisfiable, values, nil
}
