package store

import "sync"

// keyNotifier wakes connections blocked on a key (BLPOP) when another
// connection pushes to it. Channels are buffered with capacity one so a
// notify never blocks the pusher.
type keyNotifier struct {
	mu        sync.Mutex
	listeners map[string][]chan struct{}
}

func newKeyNotifier() *keyNotifier {
	return &keyNotifier{listeners: make(map[string][]chan struct{})}
}

// subscribe registers interest in pushes to key and returns the wake channel.
// The channel is closed by unsubscribe.
func (n *keyNotifier) subscribe(key string) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan struct{}, 1)
	n.listeners[key] = append(n.listeners[key], ch)
	return ch
}

// unsubscribe removes ch from key's listener list and closes it.
func (n *keyNotifier) unsubscribe(key string, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	listeners := n.listeners[key]
	for i, listener := range listeners {
		if listener == ch {
			n.listeners[key] = append(listeners[:i], listeners[i+1:]...)
			close(ch)
			break
		}
	}
	if len(n.listeners[key]) == 0 {
		delete(n.listeners, key)
	}
}

// notify wakes every listener currently waiting on key. The sends happen
// under the mutex: they cannot block (capacity-one buffer plus default),
// and holding the lock means unsubscribe can never close a channel with a
// send in flight.
func (n *keyNotifier) notify(key string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, ch := range n.listeners[key] {
		select {
		case ch <- struct{}{}:
		default:
			// Listener already has a pending wake-up.
		}
	}
}
