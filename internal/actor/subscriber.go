package actor

import (
	"sync"

	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// Close codes the actor assigns when it tears down a subscriber. The Realtime Transport writes these onto the
// underlying WebSocket close frame; the actor itself never touches a socket.
const (
	CloseGoingAway      = 1001
	CloseInternalAbnorm = 1011 // back-pressure policy: send failed or buffer filled, drop and close 1011
)

// Subscriber is the actor's side of one Realtime Transport connection: a buffered outbound event channel the actor
// owns and fans events into, plus a done signal the transport watches to know when to tear down the socket. This
// mirrors a per-connection send/done pair, adapted so the actor (not the transport) decides when a subscriber is
// no longer viable.
type Subscriber struct {
	id     string
	events chan wheel.Event
	done   chan struct{}
	code   int
	once   sync.Once
}

func newSubscriber(id string, bufferSize int) *Subscriber {
	return &Subscriber{
		id:     id,
		events: make(chan wheel.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

// Events returns the channel the Realtime Transport should range over to relay events to the client.
func (s *Subscriber) Events() <-chan wheel.Event { return s.events }

// Done is closed when the actor has dropped this subscriber; the transport should stop reading and close the
// socket with CloseCode().
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// CloseCode returns the WebSocket close code the transport should send. Only meaningful after Done() is closed.
func (s *Subscriber) CloseCode() int { return s.code }

// Close marks the subscriber as dropped with the given close code. Safe to call more than once; only the first call
// has effect.
func (s *Subscriber) Close(code int) {
	s.once.Do(func() {
		s.code = code
		close(s.done)
	})
}

// deliver attempts a non-blocking send of ev. On a full buffer it closes the subscriber with CloseInternalAbnorm per
// the back-pressure policy: slow clients that cannot keep up are disconnected rather than buffered indefinitely.
// It reports whether delivery succeeded.
func (s *Subscriber) deliver(ev wheel.Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	default:
		s.Close(CloseInternalAbnorm)
		return false
	}
}
