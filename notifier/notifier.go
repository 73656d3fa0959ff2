package notifier

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBufferSize is the default capacity of each subscriber's channel.
const DefaultBufferSize = 256

// Subscription is a handle returned by Subscribe. Consume its Events
// channel in its own goroutine; the notifier never blocks waiting for you
// to drain it — an overflowing subscription instead has its oldest pending
// batch dropped, logged at Warn.
type Subscription struct {
	Events <-chan []Notification

	notifier *Notifier
	ch       chan []Notification
	id       int
}

// Close unsubscribes, after which no further batches are delivered to this
// subscription's channel.
func (s *Subscription) Close() {
	s.notifier.unsubscribe(s.id)
}

// Notifier delivers batches of Notification to every current subscriber.
// Notify itself never blocks: each subscriber has its own bounded channel,
// and a send to a full channel drops that subscriber's oldest pending batch
// rather than stalling the caller — which matters because the directory
// calls Notify while holding its own lock (§4.5/§9: the notifier must not
// be able to make the directory's lock holder wait on subscriber I/O).
type Notifier struct {
	log        *logrus.Logger
	bufferSize int

	mu     sync.Mutex
	nextID int
	subs   map[int]chan []Notification
}

// New returns a Notifier. A nil logger discards log output.
func New(log *logrus.Logger, bufferSize int) *Notifier {
	if log == nil {
		log = logrus.New()
		log.SetOutput(discard{})
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Notifier{
		log:        log,
		bufferSize: bufferSize,
		subs:       make(map[int]chan []Notification),
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// Subscribe registers a new subscriber and returns a handle to its channel.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan []Notification, n.bufferSize)
	n.subs[id] = ch

	return &Subscription{
		Events:   ch,
		notifier: n,
		ch:       ch,
		id:       id,
	}
}

func (n *Notifier) unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subs[id]; ok {
		delete(n.subs, id)
		close(ch)
	}
}

// Notify delivers events to every current subscriber. It is called by the
// directory while holding the directory lock, so it must return
// immediately: a full subscriber channel has its oldest pending batch
// discarded (logged) to make room, rather than being waited on.
func (n *Notifier) Notify(events []Notification) {
	if len(events) == 0 {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subs {
		select {
		case ch <- events:
		default:
			// Channel is full: drop the oldest pending batch to make room,
			// then retry once. If it is still full (a subscriber racing us
			// to drain it to exactly empty), drop this batch instead of
			// blocking.
			select {
			case dropped := <-ch:
				n.log.WithFields(logrus.Fields{"subscriber": id, "dropped_batch_size": len(dropped)}).
					Warn("notifier: subscriber channel full, dropped oldest batch")
				select {
				case ch <- events:
				default:
					n.log.WithField("subscriber", id).Warn("notifier: dropped newest batch, subscriber still full")
				}
			default:
				n.log.WithField("subscriber", id).Warn("notifier: dropped batch, subscriber channel full")
			}
		}
	}
}
