package actor

import (
	"context"
	"time"

	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// RequestSpin starts a new spin: it precomputes the winner deterministically from the current active participants,
// using the actor's own weighted RNG, then schedules a deferred resolve keyed by the fresh spin id.
func (a *Actor) RequestSpin(ctx context.Context) (wheel.SpinState, error) {
	return submit(ctx, a, func() (wheel.SpinState, error) {
		if err := a.requireInitialized(); err != nil {
			return wheel.SpinState{}, err
		}
		if a.spin.Status == wheel.SpinSpinning {
			return wheel.SpinState{}, apierr.Conflict("a spin is already in progress")
		}

		active := wheel.ActiveParticipants(a.participants)
		winner, err := wheel.SelectWinner(active, a.drawWeight)
		if err != nil {
			return wheel.SpinState{}, spinErrToAPIErr(err)
		}

		spinID := nextSpinID()
		duration := a.chooseDuration()
		a.spin = wheel.SpinState{
			Status:              wheel.SpinSpinning,
			SpinID:              spinID,
			StartedAt:           a.now(),
			WinnerParticipantID: winner.ID,
			DurationMs:          int(duration.Milliseconds()),
			ExtraTurns:          a.chooseExtraTurns(),
		}

		a.bumpVersion()
		a.emit(wheel.EventSpinStarted, wheel.SpinPayload{Spin: a.spin})

		a.scheduleResolve(spinID, duration)

		return a.spin, nil
	})
}

func spinErrToAPIErr(err error) *apierr.Error {
	switch err {
	case wheel.ErrTooFewActive:
		return apierr.Conflict("fewer than two active participants")
	case wheel.ErrDegenerateWeights:
		return apierr.Internal("degenerate participant weights", err)
	default:
		return apierr.Internal("spin selection failed", err)
	}
}

// scheduleResolve arranges for resolveSpin(spinID) to run on the actor's own goroutine after d elapses. The task is
// a no-op if the spin was superseded before it fires: durationMs is a UI hint, not a semantic deadline.
func (a *Actor) scheduleResolve(spinID string, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		task := func() { a.resolveSpin(spinID) }
		select {
		case a.inbox <- task:
		case <-a.done:
		}
	})
	a.pendingTimers[spinID] = timer
}

// resolveSpin runs on the actor's own goroutine. It re-verifies the spin id still matches before doing anything,
// so a superseded spin resolves as a silent no-op.
func (a *Actor) resolveSpin(spinID string) {
	delete(a.pendingTimers, spinID)

	if a.spin.Status != wheel.SpinSpinning || a.spin.SpinID != spinID {
		return
	}

	winnerID := a.spin.WinnerParticipantID
	counters := make(map[string]int)

	for i, p := range a.participants {
		if !p.Active {
			continue
		}
		counters[p.ID] = p.SpinsSinceLastWon
		if p.ID == winnerID {
			p.SpinsSinceLastWon = 0
		} else {
			p.SpinsSinceLastWon++
		}
		a.participants[i] = p
	}

	historyItem := wheel.SpinHistoryItem{
		ID:                  spinID,
		CreatedAt:           a.now(),
		WinnerParticipantID: winnerID,
		Participants:        cloneParticipants(wheel.ActiveParticipants(a.participants)),
	}
	a.history = append(a.history, historyItem)
	if len(a.history) > a.historyLimit {
		a.history = a.history[len(a.history)-a.historyLimit:]
	}

	a.pendingResult = &wheel.PendingResult{
		SpinID:    spinID,
		Counters:  counters,
		ExpiresAt: a.now().Add(a.pendingTTL),
	}

	a.spin.Status = wheel.SpinIdle
	a.spin.ResolvedAt = a.now()

	a.bumpVersion()
	a.emit(wheel.EventSpinResolved, wheel.SpinPayload{Spin: a.spin})
	for id := range counters {
		if p, ok := wheel.FindParticipant(a.participants, id); ok {
			a.emit(wheel.EventParticipantUpdated, wheel.ParticipantPayload{Participant: p})
		}
	}
}

// ListHistory returns resolved spins newest-first, bounded to the configured history limit.
func (a *Actor) ListHistory(ctx context.Context) ([]wheel.SpinHistoryItem, error) {
	return submit(ctx, a, func() ([]wheel.SpinHistoryItem, error) {
		if err := a.requireInitialized(); err != nil {
			return nil, err
		}
		out := make([]wheel.SpinHistoryItem, len(a.history))
		for i, item := range a.history {
			out[len(a.history)-1-i] = item
		}
		return out, nil
	})
}

// SaveSpin confirms the pending result, clearing it. A mismatched or absent pending spin id is a no-op.
func (a *Actor) SaveSpin(ctx context.Context, spinID string) error {
	_, err := submit(ctx, a, func() (struct{}, error) {
		if err := a.requireInitialized(); err != nil {
			return struct{}{}, err
		}
		if a.pendingResult == nil || a.pendingResult.SpinID != spinID {
			return struct{}{}, nil
		}

		a.pendingResult = nil
		a.spin = wheel.SpinState{Status: wheel.SpinIdle}

		a.bumpVersion()
		a.emit(wheel.EventSpinResultDismissed, wheel.SpinResultDismissedPayload{SpinID: spinID, Action: wheel.DismissSave})

		return struct{}{}, nil
	})
	return err
}

// DiscardSpin reverts the pending result's counter changes, if it is still pending and unexpired, and removes the
// matching history entry. An expired pending result only removes the history entry; no dismissal event fires in
// that case, since the pending result has already effectively been treated as saved.
func (a *Actor) DiscardSpin(ctx context.Context, spinID string) error {
	_, err := submit(ctx, a, func() (struct{}, error) {
		if err := a.requireInitialized(); err != nil {
			return struct{}{}, err
		}
		if a.pendingResult == nil || a.pendingResult.SpinID != spinID {
			return struct{}{}, nil
		}

		expired := a.pendingResult.Expired(a.now())
		a.removeHistoryEntry(spinID)

		if expired {
			a.pendingResult = nil
			a.spin = wheel.SpinState{Status: wheel.SpinIdle}
			a.bumpVersion()
			return struct{}{}, nil
		}

		counters := a.pendingResult.Counters
		a.pendingResult = nil
		a.spin = wheel.SpinState{Status: wheel.SpinIdle}

		var reverted []wheel.Participant
		for id, priorCount := range counters {
			idx := wheel.IndexOfParticipant(a.participants, id)
			if idx == -1 {
				continue
			}
			p := a.participants[idx]
			p.SpinsSinceLastWon = priorCount
			a.participants[idx] = p
			reverted = append(reverted, p)
		}

		a.bumpVersion()
		for _, p := range reverted {
			a.emit(wheel.EventParticipantUpdated, wheel.ParticipantPayload{Participant: p})
		}
		a.emit(wheel.EventSpinResultDismissed, wheel.SpinResultDismissedPayload{SpinID: spinID, Action: wheel.DismissDiscard})

		return struct{}{}, nil
	})
	return err
}

func (a *Actor) removeHistoryEntry(spinID string) {
	for i, item := range a.history {
		if item.ID == spinID {
			a.history = append(a.history[:i], a.history[i+1:]...)
			return
		}
	}
}

// Subscribe attaches a new subscriber and returns it along with the snapshot event it should be sent first. The
// whole attach-and-snapshot sequence runs as one actor transaction so no mutation can land between the snapshot
// being captured and the subscriber being registered to receive the tail.
func (a *Actor) Subscribe(ctx context.Context, sendBuffer int) (*Subscriber, wheel.Event, error) {
	type result struct {
		sub *Subscriber
		ev  wheel.Event
	}
	r, err := submit(ctx, a, func() (result, error) {
		if err := a.requireInitialized(); err != nil {
			return result{}, err
		}
		if sendBuffer <= 0 {
			sendBuffer = a.sendBuffer
		}
		a.subSeq++
		id := nextSpinID()
		sub := newSubscriber(id, sendBuffer)
		a.subscribers[id] = sub
		return result{sub: sub, ev: a.snapshotEvent()}, nil
	})
	return r.sub, r.ev, err
}

// Unsubscribe detaches a subscriber, e.g. after its transport closes the socket on its own initiative.
func (a *Actor) Unsubscribe(sub *Subscriber) {
	a.submitVoid(func() {
		delete(a.subscribers, sub.id)
	})
}
