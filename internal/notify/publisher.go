package notify

import "sync"

// GlobalUserID subscribes to events for every recipient. Dashboards
// that render a facility-wide activity strip use this.
const GlobalUserID = "*"

// Publisher fans events out to live subscribers.
type Publisher interface {
	// Publish sends an event to all subscribers of the recipient.
	Publish(event Event)
	// Subscribe returns a channel receiving events for the given user.
	// Use GlobalUserID ("*") to receive events for all users.
	Subscribe(userID string) <-chan Event
	// Unsubscribe removes a subscription channel.
	Unsubscribe(userID string, ch <-chan Event)
	// Close shuts down the publisher and all subscriptions.
	Close()
}

// MemoryPublisher is an in-memory implementation of Publisher.
type MemoryPublisher struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
}

// PublisherOption configures a MemoryPublisher.
type PublisherOption func(*MemoryPublisher)

// WithBufferSize sets the channel buffer size for subscribers.
func WithBufferSize(size int) PublisherOption {
	return func(p *MemoryPublisher) {
		p.bufferSize = size
	}
}

// NewMemoryPublisher creates a new in-memory publisher.
func NewMemoryPublisher(opts ...PublisherOption) *MemoryPublisher {
	p := &MemoryPublisher{
		subscribers: make(map[string][]chan Event),
		bufferSize:  64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends an event to the recipient's subscribers and to global
// subscribers. Non-blocking: subscribers with full buffers are skipped;
// the durable feed in the database is the source of truth.
func (p *MemoryPublisher) Publish(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	for _, ch := range p.subscribers[event.UserID] {
		select {
		case ch <- event:
		default:
		}
	}

	if event.UserID != GlobalUserID {
		for _, ch := range p.subscribers[GlobalUserID] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// Subscribe returns a channel that receives events for the given user.
func (p *MemoryPublisher) Subscribe(userID string) <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, p.bufferSize)
	p.subscribers[userID] = append(p.subscribers[userID], ch)
	return ch
}

// Unsubscribe removes a subscription channel.
func (p *MemoryPublisher) Unsubscribe(userID string, ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	subs := p.subscribers[userID]
	for i, sub := range subs {
		if sub == ch {
			p.subscribers[userID] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(p.subscribers[userID]) == 0 {
		delete(p.subscribers, userID)
	}
}

// Close shuts down the publisher and closes all subscriber channels.
func (p *MemoryPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	p.subscribers = make(map[string][]chan Event)
}

// NopPublisher discards all events. Useful for batch commands that
// mutate records without a live dashboard attached.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
func (NopPublisher) Subscribe(string) <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}
func (NopPublisher) Unsubscribe(string, <-chan Event) {}
func (NopPublisher) Close()                           {}
