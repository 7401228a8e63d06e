package async

import (
	"sync"
	"time"

	"github.com/phrazzld/reel-api/internal/domain"
)

// Progress curve constants. Growth is roughly linear up to the knee,
// near-flat up to the hold value, then held until a terminal result
// arrives. The estimate is purely cosmetic and must never be used to
// infer completion; only Complete moves it to 100.
const (
	DefaultTickInterval = time.Second

	progressKnee     = 90.0
	progressHold     = 98.0
	linearStep       = 3.0
	crawlStep        = 0.25
	submittedCeiling = 8.0
)

// Estimator produces a monotonically-increasing, capped synthetic
// progress signal while an orchestration is outstanding. It owns its own
// periodic tick and must be stopped on every terminal transition so no
// background task outlives its orchestration.
type Estimator struct {
	mu    sync.Mutex
	value float64
	done  bool

	interval time.Duration
	onUpdate func(domain.ProgressEstimate)
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEstimator creates an estimator ticking every interval
// (DefaultTickInterval when zero). onUpdate, if non-nil, receives every
// new estimate; it is invoked from the estimator's goroutine and must
// not block.
func NewEstimator(interval time.Duration, onUpdate func(domain.ProgressEstimate)) *Estimator {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Estimator{
		interval: interval,
		onUpdate: onUpdate,
		stop:     make(chan struct{}),
	}
}

// Start begins ticking from zero. It must be paired with Stop.
func (e *Estimator) Start() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stop:
				return
			case <-ticker.C:
				e.tick()
			}
		}
	}()
}

// Stop cancels the periodic tick. Idempotent; safe to call from any
// terminal path. The current value is left where it is.
func (e *Estimator) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
	})
	e.wg.Wait()
}

// Complete stops the estimator and forces the estimate to exactly 100.
// Only the orchestrator calls this, and only on confirmed terminal
// success.
func (e *Estimator) Complete() {
	e.Stop()

	e.mu.Lock()
	e.value = 100
	e.done = true
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if e.onUpdate != nil {
		e.onUpdate(snapshot)
	}
}

// Snapshot returns the current estimate.
func (e *Estimator) Snapshot() domain.ProgressEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Estimator) snapshotLocked() domain.ProgressEstimate {
	return domain.ProgressEstimate{
		Value: e.value,
		Phase: phaseFor(e.value, e.done),
	}
}

// tick advances the synthetic value: linear up to the knee, a crawl up
// to the hold value, then parked there.
func (e *Estimator) tick() {
	e.mu.Lock()
	switch {
	case e.value < progressKnee:
		e.value += linearStep
		if e.value > progressKnee {
			e.value = progressKnee
		}
	case e.value < progressHold:
		e.value += crawlStep
		if e.value > progressHold {
			e.value = progressHold
		}
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	if e.onUpdate != nil {
		e.onUpdate(snapshot)
	}
}

func phaseFor(value float64, done bool) domain.ProgressPhase {
	switch {
	case done || value >= progressKnee:
		return domain.PhaseFinalizing
	case value < submittedCeiling:
		return domain.PhaseSubmitted
	default:
		return domain.PhaseSynthesizing
	}
}
