package tvmsym

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Explorer runs methods of a contract to exhaustion, or until a budget is
// reached, using a pool of workers that step states concurrently. Each worker
// owns an executor & solver; solver results are shared through a cache.
type Explorer struct {
	Contract *Contract
	Config   Config

	// Returns a solver for a worker. Solvers implementing io.Closer are
	// closed when the exploration completes.
	NewSolver func() (Solver, error)

	Logger logrus.FieldLogger
}

// NewExplorer returns a new instance of Explorer.
func NewExplorer(contract *Contract, newSolver func() (Solver, error)) *Explorer {
	return &Explorer{
		Contract:  contract,
		Config:    DefaultConfig(),
		NewSolver: newSolver,
		Logger:    logrus.StandardLogger(),
	}
}

// Report is the result of exploring one method.
type Report struct {
	MethodID int

	// Terminated states in the order they terminated.
	States []*ExecutionState

	// Tests resolved from succeeded & failed states.
	Tests []*TestRecord

	Coverage *Coverage
	Steps    int

	// True if a budget stopped the exploration before all paths terminated.
	Aborted bool

	SolverHits   int64
	SolverMisses int64
}

// Count returns the number of terminated states with the given status.
func (r *Report) Count(status ExecutionStatus) int {
	var n int
	for _, s := range r.States {
		if s.status == status {
			n++
		}
	}
	return n
}

// ExploreAll explores every method of the contract in id order.
func (x *Explorer) ExploreAll(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for _, id := range x.Contract.MethodIDs() {
		report, err := x.Explore(ctx, id, nil)
		if err != nil {
			return reports, errors.Wrapf(err, "method %d", id)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Explore explores the method with the given id. The args are placed on top
// of the initial stack.
func (x *Explorer) Explore(ctx context.Context, methodID int, args []Value) (*Report, error) {
	cfg := x.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := NewSolverCache(cfg.Solver.CacheSize)
	if err != nil {
		return nil, err
	}

	executors := make([]*Executor, cfg.Explorer.Workers)
	for i := range executors {
		solver, err := x.NewSolver()
		if err != nil {
			return nil, errors.Wrap(err, "new solver")
		}
		if closer, ok := solver.(io.Closer); ok {
			defer closer.Close()
		}

		e := NewExecutor(x.Contract, NewCachingSolver(solver, cache))
		e.Logger = x.logger()
		e.UnknownAsUnsat = cfg.Solver.UnknownAsUnsat
		if err := cfg.Executor.Apply(e); err != nil {
			return nil, err
		}
		executors[i] = e
	}

	root, err := executors[0].InitialState(methodID, args...)
	if err != nil {
		return nil, err
	}

	targets, err := cfg.Explorer.TargetLocations()
	if err != nil {
		return nil, err
	}
	searcher, err := NewSearcher(cfg.Explorer.Searcher, cfg.Explorer.Seed, targets)
	if err != nil {
		return nil, err
	}

	run := &exploration{
		cfg:      cfg.Explorer,
		searcher: searcher,
		report:   &Report{MethodID: methodID, Coverage: NewCoverage(x.Contract)},
		logger:   x.logger().WithField("method", methodID),
	}
	run.cond = sync.NewCond(&run.mu)
	run.searcher.AddState(root)

	if err := run.run(ctx, executors); err != nil {
		return run.report, err
	}

	report := run.report
	report.SolverHits, report.SolverMisses = cache.Stats()

	// Resolve tests once all workers have stopped.
	for _, s := range report.States {
		if s.status != ExecutionStatusSucceeded && s.status != ExecutionStatusFailed {
			continue
		}
		r, err := NewResolver(executors[0].Solver, s)
		if err != nil {
			return report, err
		}
		rec, err := r.Record()
		if err != nil {
			return report, err
		}
		report.Tests = append(report.Tests, rec)
	}
	return report, nil
}

func (x *Explorer) logger() logrus.FieldLogger {
	if x.Logger == nil {
		return logrus.StandardLogger()
	}
	return x.Logger
}

// exploration is the shared frontier of one Explore call.
type exploration struct {
	cfg    ExplorerConfig
	logger logrus.FieldLogger

	mu       sync.Mutex
	cond     *sync.Cond
	searcher Searcher
	inflight int
	stopped  bool
	report   *Report
}

func (run *exploration) run(ctx context.Context, executors []*Executor) error {
	if d := run.cfg.Timeout.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	parent := ctx
	g, ctx := errgroup.WithContext(ctx)

	// Wake up waiting workers once the context is done.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			run.stop(true)
		case <-done:
		}
	}()

	for _, e := range executors {
		e := e
		g.Go(func() error { return run.work(ctx, e) })
	}
	err := g.Wait()

	// An expired timeout is a budget, not an error.
	if err == nil && parent.Err() != nil && !errors.Is(parent.Err(), context.DeadlineExceeded) {
		err = parent.Err()
	}
	return err
}

// work steps states until the frontier is exhausted or the run stops.
func (run *exploration) work(ctx context.Context, e *Executor) error {
	for {
		state := run.next()
		if state == nil {
			return nil
		}

		t := time.Now()
		states, err := e.Step(state)
		if err != nil {
			run.logger.WithError(err).WithField("state", state.id).Error("exploration aborted")
			run.release()
			run.stop(false)
			return err
		}
		run.logger.WithFields(logrus.Fields{"state": state.id, "elapsed": time.Since(t)}).Trace("step")

		run.finish(state, states)
		if ctx.Err() != nil {
			return nil
		}
	}
}

// next blocks until a state is available and returns it, or returns nil once
// no state is pending or in flight.
func (run *exploration) next() *ExecutionState {
	run.mu.Lock()
	defer run.mu.Unlock()
	for {
		if run.stopped {
			return nil
		}
		if state := run.searcher.SelectState(); state != nil {
			run.inflight++
			return state
		}
		if run.inflight == 0 {
			return nil
		}
		run.cond.Wait()
	}
}

// finish records the result of stepping state & checks the budgets.
func (run *exploration) finish(state *ExecutionState, states []*ExecutionState) {
	run.mu.Lock()
	defer run.mu.Unlock()
	defer run.cond.Broadcast()

	run.inflight--
	run.report.Steps++
	run.report.Coverage.Visit(state.last)
	for _, s := range states {
		if s.Terminated() {
			run.report.States = append(run.report.States, s)
		} else if !run.stopped {
			run.searcher.AddState(s)
		}
	}

	if n := run.cfg.MaxSteps; n > 0 && run.report.Steps >= n {
		run.stopLocked(true)
	} else if n := run.cfg.MaxStates; n > 0 && len(run.report.States) >= n {
		run.stopLocked(true)
	}
}

// release gives up a state taken with next without stepping it.
func (run *exploration) release() {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.inflight--
	run.cond.Broadcast()
}

// stop discards the pending states. If aborted is set, the report is marked
// as incomplete.
func (run *exploration) stop(aborted bool) {
	run.mu.Lock()
	defer run.mu.Unlock()
	run.stopLocked(aborted)
	run.cond.Broadcast()
}

func (run *exploration) stopLocked(aborted bool) {
	if run.stopped {
		return
	}
	run.stopped = true

	// States left in the searcher or still being stepped never terminate.
	if aborted && (run.searcher.SelectState() != nil || run.inflight > 0) {
		run.report.Aborted = true
	}
}
