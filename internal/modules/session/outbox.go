// README: Outbox collects what a session's router emits until the client drains it.
package session

import (
	"sync"

	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/interaction"
	"wayfinder/internal/modules/mapsync"
)

// maxPendingEffects bounds an undrained outbox. Older effects are dropped and
// the batch is flagged so the client re-syncs from the surface snapshot.
const maxPendingEffects = 512

type CandidateUpdate struct {
	Query      string               `json:"query"`
	Generation uint64               `json:"generation"`
	Candidates []geolookup.Location `json:"candidates"`
}

type Batch struct {
	Effects           []mapsync.Effect     `json:"effects"`
	Notices           []interaction.Notice `json:"notices"`
	Candidates        *CandidateUpdate     `json:"candidates,omitempty"`
	PositionRequested bool                 `json:"position_requested"`
	Truncated         bool                 `json:"truncated"`
}

type Outbox struct {
	mu      sync.Mutex
	pending Batch
	surface *mapsync.Surface
}

func NewOutbox() *Outbox {
	return &Outbox{surface: mapsync.NewSurface()}
}

func (o *Outbox) Render(effects []mapsync.Effect) {
	o.surface.Apply(effects...)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.Effects = append(o.pending.Effects, effects...)
	if over := len(o.pending.Effects) - maxPendingEffects; over > 0 {
		o.pending.Effects = append([]mapsync.Effect(nil), o.pending.Effects[over:]...)
		o.pending.Truncated = true
	}
}

func (o *Outbox) Notify(n interaction.Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.Notices = append(o.pending.Notices, n)
}

// Candidates keeps only the newest committed search.
func (o *Outbox) Candidates(query string, generation uint64, locs []geolookup.Location) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.Candidates = &CandidateUpdate{Query: query, Generation: generation, Candidates: locs}
}

// RequestPosition flags that the server is waiting for a device fix.
func (o *Outbox) RequestPosition() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending.PositionRequested = true
}

// Drain returns and clears everything pending.
func (o *Outbox) Drain() Batch {
	o.mu.Lock()
	defer o.mu.Unlock()
	b := o.pending
	o.pending = Batch{}
	if b.Effects == nil {
		b.Effects = []mapsync.Effect{}
	}
	if b.Notices == nil {
		b.Notices = []interaction.Notice{}
	}
	return b
}

// Surface is the picture the effects so far produce.
func (o *Outbox) Surface() mapsync.Snapshot {
	return o.surface.Snapshot()
}
