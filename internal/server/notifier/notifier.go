// Package notifier broadcasts change pings to SSE listeners, grouped by topic.
package notifier

import "sync"

// Notifier broadcasts update signals to listeners subscribed to a topic
// (a project ID). Listeners receive an empty struct and should re-read
// the store.
type Notifier struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe returns a channel that receives pings for topic.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe(topic string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.topics[topic] == nil {
		n.topics[topic] = make(map[chan struct{}]struct{})
	}
	n.topics[topic][ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(topic string, ch chan struct{}) {
	n.mu.Lock()
	if listeners, ok := n.topics[topic]; ok {
		delete(listeners, ch)
		if len(listeners) == 0 {
			delete(n.topics, topic)
		}
	}
	n.mu.Unlock()
	close(ch)
}

// Broadcast pings every listener of topic.
// Non-blocking: a listener with a pending ping is skipped.
func (n *Notifier) Broadcast(topic string) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.topics[topic] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Listeners reports how many listeners are subscribed to topic.
func (n *Notifier) Listeners(topic string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.topics[topic])
}
