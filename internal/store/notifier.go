package store

import "sync"

// Notification is the new-capture event delivered to presentation-layer
// subscribers.
type Notification struct {
	Name string `json:"name"`
}

// Notifier fans notifications out to subscribers. Delivery is best-effort:
// a subscriber that has fallen behind drops events rather than blocking the
// capture pipeline.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Notification]struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[chan Notification]struct{}),
	}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the subscriber goes away.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	ch := make(chan Notification, 16)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

func (n *Notifier) Publish(event Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
