package auth

import "sync"

// State is the login state broadcast to subscribers.
type State struct {
	LoggedIn bool
	Email    string
}

// Broadcaster fans login-state changes out to subscribers. It is owned
// by the Negotiator; there is no package-level listener set.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]func(State)
}

// Subscribe registers fn and returns its unsubscribe handle.
func (b *Broadcaster) Subscribe(fn func(State)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(State))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *Broadcaster) publish(s State) {
	b.mu.Lock()
	fns := make([]func(State), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
