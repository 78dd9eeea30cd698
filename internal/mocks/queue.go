package mocks

import "sync"

// MockMessageQueue is an in-memory MessageQueue: Publish delivers to the
// subscribers of the subject synchronously.
type MockMessageQueue struct {
	PublishFunc   func(topic string, data []byte) error
	SubscribeFunc func(topic string, handler func([]byte) error) error
	CloseFunc     func() error

	mu          sync.Mutex
	published   map[string][][]byte
	subscribers map[string][]func([]byte) error
	subscribed  chan string
}

func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{
		published:   make(map[string][][]byte),
		subscribers: make(map[string][]func([]byte) error),
		subscribed:  make(chan string, 16),
	}
}

func (m *MockMessageQueue) Publish(topic string, data []byte) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(topic, data)
	}
	m.mu.Lock()
	m.published[topic] = append(m.published[topic], data)
	handlers := append([]func([]byte) error(nil), m.subscribers[topic]...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

func (m *MockMessageQueue) Subscribe(topic string, handler func([]byte) error) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(topic, handler)
	}
	m.mu.Lock()
	m.subscribers[topic] = append(m.subscribers[topic], handler)
	m.mu.Unlock()

	select {
	case m.subscribed <- topic:
	default:
	}
	return nil
}

func (m *MockMessageQueue) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// GetPublishedMessages returns all messages published to a topic
func (m *MockMessageQueue) GetPublishedMessages(topic string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[topic]...)
}

// Subscribed is signalled with the topic of every Subscribe call
func (m *MockMessageQueue) Subscribed() <-chan string {
	return m.subscribed
}
