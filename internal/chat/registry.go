package chat

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry is the set of peers eligible to receive broadcasts.
//
// Membership changes and the snapshot taken at the start of a broadcast
// serialize on one lock. Sends happen outside it, so a slow peer never holds
// up registration of new connections.
type Registry struct {
	mu     sync.RWMutex
	peers  map[string]Peer
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		peers:  make(map[string]Peer),
		logger: logger,
	}
}

// Register adds p to the live set. Registering the same peer twice keeps a
// single entry.
func (r *Registry) Register(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.peers[p.ID()] = p
	ConnectedClients.Set(float64(len(r.peers)))
}

// Deregister removes p and reports whether it was present. Removing an absent
// peer is a no-op.
func (r *Registry) Deregister(p Peer) bool {
	id := p.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[id]; !ok {
		return false
	}
	delete(r.peers, id)
	ConnectedClients.Set(float64(len(r.peers)))
	return true
}

// BroadcastExcept delivers message to every registered peer other than sender
// and returns how many accepted it. A nil sender delivers to everyone.
//
// A recipient whose Send fails is closed and deregistered; delivery to the
// others continues and the failure is not reported to the caller.
func (r *Registry) BroadcastExcept(sender Peer, message string) int {
	recipients := r.snapshotExcept(sender)

	delivered := 0
	for _, p := range recipients {
		if err := p.Send(message); err != nil {
			r.drop(p, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Len is the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Names returns the display names of registered peers, sorted. Peers that
// have not sent a name yet are left out.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Without(lo.MapToSlice(r.peers, func(_ string, p Peer) string { return p.Name() }), "")
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (r *Registry) snapshotExcept(sender Peer) []Peer {
	senderID := ""
	if sender != nil {
		senderID = sender.ID()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Filter(lo.Values(r.peers), func(p Peer, _ int) bool {
		return senderID == "" || p.ID() != senderID
	})
}

// drop treats a failed send as a disconnect. The peer is closed before it
// leaves the set so nothing else is delivered to it afterwards.
func (r *Registry) drop(p Peer, err error) {
	_ = p.Close()
	if !r.Deregister(p) {
		// Already removed by its own session.
		return
	}

	DeliveryFailures.Inc()
	if errors.Is(err, ErrConnClosed) {
		r.logger.Debug("dropped closed recipient", "id", p.ID(), "user", p.Name())
		return
	}
	r.logger.Warn("dropped recipient after failed send", "id", p.ID(), "user", p.Name(), "error", err)
}
