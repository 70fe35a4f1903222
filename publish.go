package xchg

import "sync"

// Publisher receives the outbound messages of every committed call, in order.
//
// The batch slice is owned by the caller and must not be retained after
// Publish returns; implementations that publish asynchronously must copy it.
type Publisher interface {
	Publish(...Message)
}

// MemoryPublisher stores messages in memory, useful for testing.
type MemoryPublisher struct {
	mu       sync.RWMutex
	Messages []Message
}

// NewMemoryPublisher creates a new MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		Messages: make([]Message, 0),
	}
}

// Publish appends messages to the in-memory slice.
func (m *MemoryPublisher) Publish(msgs ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msgs...)
}

// Count returns the number of messages stored.
func (m *MemoryPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Messages)
}

// Get returns the message at the specified index.
func (m *MemoryPublisher) Get(index int) Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Messages[index]
}

// ByKind returns the stored messages of one kind.
func (m *MemoryPublisher) ByKind(kind MessageKind) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Message
	for _, msg := range m.Messages {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

// Reset drops every stored message.
func (m *MemoryPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = m.Messages[:0]
}

// DiscardPublisher discards all messages, useful for benchmarking.
type DiscardPublisher struct {
}

// NewDiscardPublisher creates a new DiscardPublisher.
func NewDiscardPublisher() *DiscardPublisher {
	return &DiscardPublisher{}
}

// Publish does nothing.
func (p *DiscardPublisher) Publish(msgs ...Message) {

}

// multiPublisher fans a batch out to several publishers.
type multiPublisher []Publisher

func (m multiPublisher) Publish(msgs ...Message) {
	for _, p := range m {
		p.Publish(msgs...)
	}
}

// MultiPublisher returns a Publisher that forwards to every given publisher.
func MultiPublisher(publishers ...Publisher) Publisher {
	return multiPublisher(publishers)
}
