// Package actor implements the Group Actor: a per-group singleton that owns a group's mutable state, serializes all
// mutations through a single inbound request queue, drives the spin state machine, and broadcasts a totally ordered
// event stream to its subscribers.
package actor

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// Actor is the single-writer owner of exactly one group's state. All exported methods enqueue a closure onto inbox
// and block for its result; the run loop executes closures to completion, including event emission, before taking
// the next one off the queue.
type Actor struct {
	id    string
	inbox chan func()
	done  chan struct{}
	log   zerolog.Logger

	historyLimit int
	pendingTTL   time.Duration
	sendBuffer   int

	// drawWeight, chooseDuration, and chooseExtraTurns are the actor's private randomness. They default to
	// math/rand/v2-backed choices in New but are overridable in tests for determinism.
	drawWeight       func(weightSum int) int
	chooseDuration   func() time.Duration
	chooseExtraTurns func() int
	now              func() time.Time

	group         wheel.Group
	participants  []wheel.Participant
	spin          wheel.SpinState
	history       []wheel.SpinHistoryItem
	pendingResult *wheel.PendingResult
	version       int
	initialized   bool

	subscribers map[string]*Subscriber
	subSeq      int

	pendingTimers map[string]*time.Timer

	// checkpoint is the optional best-effort persistence sink, invoked once per committed transaction. Nil means
	// checkpointing is disabled (e.g. in tests).
	checkpoint func(groupID string, version int, snap Snapshot)
}

// Options configures construction beyond the required id/logger, primarily so callers can inject config-derived
// bounds without the actor package depending on the config package.
type Options struct {
	HistoryLimit    int
	PendingTTL      time.Duration
	SendBuffer      int
	SpinDurationMin time.Duration
	SpinDurationMax time.Duration
	ExtraTurns      []int

	// Checkpoint, if non-nil, is called once per committed transaction with the actor's full state. Typically
	// wraps a checkpoint.Store's SaveAsync so the actor package never imports the persistence package directly.
	Checkpoint func(groupID string, version int, snap Snapshot)
}

// New constructs an Actor for groupID and starts its run loop. Callers must call Init before any other operation
// succeeds.
func New(groupID string, opts Options, logger zerolog.Logger) *Actor {
	extraTurns := opts.ExtraTurns
	if len(extraTurns) == 0 {
		extraTurns = []int{6, 7, 8}
	}
	durMin, durMax := opts.SpinDurationMin, opts.SpinDurationMax
	if durMax <= durMin {
		durMin, durMax = 4000*time.Millisecond, 6000*time.Millisecond
	}

	a := &Actor{
		id:            groupID,
		inbox:         make(chan func(), 64),
		done:          make(chan struct{}),
		log:           logger.With().Str("component", "group_actor").Str("group_id", groupID).Logger(),
		historyLimit:  orDefault(opts.HistoryLimit, 20),
		pendingTTL:    orDefaultDuration(opts.PendingTTL, 10*time.Minute),
		sendBuffer:    orDefault(opts.SendBuffer, 16),
		subscribers:   make(map[string]*Subscriber),
		pendingTimers: make(map[string]*time.Timer),
		checkpoint:    opts.Checkpoint,
		now:           time.Now,
		drawWeight: func(weightSum int) int {
			return rand.IntN(weightSum)
		},
		chooseDuration: func() time.Duration {
			span := durMax - durMin
			return durMin + time.Duration(rand.Int64N(int64(span)))
		},
		chooseExtraTurns: func() int {
			return extraTurns[rand.IntN(len(extraTurns))]
		},
	}

	go a.run()
	return a
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func orDefaultDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

// ID returns the group id this actor owns.
func (a *Actor) ID() string { return a.id }

// Stop halts the run loop and closes every subscriber. It is idempotent.
func (a *Actor) Stop() {
	select {
	case <-a.done:
		return
	default:
	}
	a.submitVoid(func() {
		for _, t := range a.pendingTimers {
			t.Stop()
		}
		for id, sub := range a.subscribers {
			sub.Close(CloseGoingAway)
			delete(a.subscribers, id)
		}
	})
	close(a.done)
}

func (a *Actor) run() {
	for {
		select {
		case fn := <-a.inbox:
			fn()
		case <-a.done:
			return
		}
	}
}

// submit enqueues fn and waits for its typed result, respecting ctx cancellation on both enqueue and reply.
func submit[T any](ctx context.Context, a *Actor, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	replyCh := make(chan result, 1)

	task := func() {
		v, err := fn()
		replyCh <- result{v, err}
	}

	select {
	case <-a.done:
		var zero T
		return zero, ErrStopped
	default:
	}

	select {
	case a.inbox <- task:
	case <-a.done:
		var zero T
		return zero, ErrStopped
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	select {
	case r := <-replyCh:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// submitVoid is submit for operations with no return value, used internally for lifecycle tasks like Stop.
func (a *Actor) submitVoid(fn func()) {
	done := make(chan struct{})
	task := func() {
		fn()
		close(done)
	}
	select {
	case a.inbox <- task:
		<-done
	case <-a.done:
	}
}

// nextSpinID mints a fresh opaque spin identifier.
func nextSpinID() string {
	return uuid.NewString()
}
