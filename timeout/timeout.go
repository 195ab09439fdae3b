// Package timeout tracks replies expected from peers.
package timeout

import (
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/libp2p/go-libp2p/core/peer"
)

type key[K comparable] struct {
	peer peer.ID
	kind K
}

type expectation struct {
	remaining int
	deadline  time.Time
}

// Expired describes a peer that didn't reply in time.
type Expired[K comparable] struct {
	Peer peer.ID
	Kind K
	// Remaining is the number of replies that were still outstanding.
	Remaining int
}

// Opt is an option for Tracker.
type Opt[K comparable] func(*Tracker[K])

// WithClock specifies the clock used by the tracker.
func WithClock[K comparable](clock clockwork.Clock) Opt[K] {
	return func(t *Tracker[K]) {
		t.clock = clock
	}
}

// Tracker keeps the number of replies of each kind expected from each peer,
// along with a deadline for them. It is safe for concurrent use.
type Tracker[K comparable] struct {
	timeout time.Duration
	clock   clockwork.Clock

	mu      sync.Mutex
	pending map[key[K]]*expectation
}

// New creates a tracker which allows timeout for the replies to arrive.
func New[K comparable](timeout time.Duration, opts ...Opt[K]) *Tracker[K] {
	t := &Tracker[K]{
		timeout: timeout,
		clock:   clockwork.NewRealClock(),
		pending: make(map[key[K]]*expectation),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Expect registers n more replies of the specified kind from the peer.
// The deadline for all outstanding replies of that kind is reset.
func (t *Tracker[K]) Expect(p peer.ID, n int, kind K) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key[K]{peer: p, kind: kind}
	e, found := t.pending[k]
	if !found {
		e = &expectation{}
		t.pending[k] = e
	}
	e.remaining += n
	e.deadline = t.clock.Now().Add(t.timeout)
}

// Received records a reply of the specified kind from the peer.
// It returns false if no such reply was expected.
func (t *Tracker[K]) Received(p peer.ID, kind K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key[K]{peer: p, kind: kind}
	e, found := t.pending[k]
	if !found {
		return false
	}
	e.remaining--
	if e.remaining <= 0 {
		delete(t.pending, k)
	}
	return true
}

// Pending returns the number of outstanding replies of the specified kind.
func (t *Tracker[K]) Pending(p peer.ID, kind K) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, found := t.pending[key[K]{peer: p, kind: kind}]; found {
		return e.remaining
	}
	return 0
}

// Forget drops all expectations for the peer, e.g. after it disconnects.
func (t *Tracker[K]) Forget(p peer.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.pending {
		if k.peer == p {
			delete(t.pending, k)
		}
	}
}

// Check removes and returns the expectations of the specified kinds which
// are past their deadline. With no kinds, all expectations are checked.
// The result is ordered by peer.
func (t *Tracker[K]) Check(kinds ...K) []Expired[K] {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	var expired []Expired[K]
	for k, e := range t.pending {
		if len(kinds) != 0 && !slices.Contains(kinds, k.kind) {
			continue
		}
		if now.Before(e.deadline) {
			continue
		}
		expired = append(expired, Expired[K]{Peer: k.peer, Kind: k.kind, Remaining: e.remaining})
		delete(t.pending, k)
	}
	slices.SortFunc(expired, func(a, b Expired[K]) int {
		switch {
		case a.Peer < b.Peer:
			return -1
		case a.Peer > b.Peer:
			return 1
		}
		return 0
	})
	return expired
}
