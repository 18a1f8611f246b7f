package bus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryTransport keeps envelopes in process. It is meant for tests and for
// deferring work inside a single process.
type InMemoryTransport struct {
	mu       sync.Mutex
	queue    []*Envelope
	acked    []*Envelope
	rejected []*Envelope
}

// NewInMemoryTransport returns an empty transport.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{}
}

// Send queues env and stamps it with a generated id.
func (t *InMemoryTransport) Send(ctx context.Context, env *Envelope) (*Envelope, error) {
	env = env.With(TransportMessageIDStamp{ID: uuid.NewString()})
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, env)
	return env, nil
}

// Get drains the queue.
func (t *InMemoryTransport) Get(ctx context.Context) ([]*Envelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.queue
	t.queue = nil
	return out, nil
}

// Ack records env as acknowledged.
func (t *InMemoryTransport) Ack(ctx context.Context, env *Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acked = append(t.acked, env)
	return nil
}

// Reject records env as rejected.
func (t *InMemoryTransport) Reject(ctx context.Context, env *Envelope) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejected = append(t.rejected, env)
	return nil
}

// Queued returns the envelopes waiting to be fetched.
func (t *InMemoryTransport) Queued() []*Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Envelope(nil), t.queue...)
}

// Acked returns the acknowledged envelopes.
func (t *InMemoryTransport) Acked() []*Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Envelope(nil), t.acked...)
}

// Rejected returns the rejected envelopes.
func (t *InMemoryTransport) Rejected() []*Envelope {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Envelope(nil), t.rejected...)
}
