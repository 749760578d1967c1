package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the default per-subscriber message buffer.
const DefaultBufferSize = 256

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber message buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) BrokerOption {
	return func(b *Broker) { b.logger = l }
}

// Broker is an in-process topic broker implementing Publisher. It fans
// published messages out to per-topic subscribers over buffered channels;
// a subscriber that falls behind has messages dropped rather than blocking
// the publishing firing.
type Broker struct {
	logger     *slog.Logger
	bufferSize int

	mu     sync.RWMutex
	subs   map[string][]*subscriber
	closed bool

	totalPublished atomic.Int64
	totalDropped   atomic.Int64
}

type subscriber struct {
	ch chan Message
}

// NewBroker creates an in-process broker.
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		logger:     slog.Default(),
		bufferSize: DefaultBufferSize,
		subs:       make(map[string][]*subscriber),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers the message to every subscriber of its topic.
// Never blocks: full subscriber buffers drop the message for that
// subscriber only.
//
// The read lock is held across the fan-out. Sends never block (buffered
// channel, drop on full), and cancel closes a subscriber channel only
// under the write lock, so an in-flight publish can never send on a
// closed channel.
func (b *Broker) Publish(_ context.Context, msg Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.totalPublished.Add(1)
	for _, sub := range b.subs[msg.Topic] {
		select {
		case sub.ch <- msg:
		default:
			b.totalDropped.Add(1)
			b.logger.Warn("broker: subscriber buffer full, message dropped",
				slog.String("topic", msg.Topic),
				slog.String("key", msg.Key),
			)
		}
	}
	return nil
}

// Subscribe registers a new subscriber for a topic. The returned cancel
// function removes the subscription and closes the channel.
func (b *Broker) Subscribe(topic string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, b.bufferSize)}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			subs := b.subs[topic]
			for i, s := range subs {
				if s == sub {
					b.subs[topic] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(sub.ch)
			b.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Stats returns broker counters.
func (b *Broker) Stats() (published, dropped int64) {
	return b.totalPublished.Load(), b.totalDropped.Load()
}
