// Package notify detects newly arrived mail between refreshes and raises
// alerts for it.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/store"
)

// Notifier delivers an alert to the user.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// LogNotifier records alerts in the notification log.
type LogNotifier struct {
	Log store.NotificationLog
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n model.Notification) error {
	return l.Log.CreateNotification(ctx, n)
}

// Gate remembers how many messages the previous refresh returned and fires
// a notification when the count grows. The first population of a mailbox
// never fires, and nothing fires until permission is granted.
//
// Counts are kept per mailbox generation. A refresh from an older
// generation than the last one seen is ignored, and a newer generation
// starts over from zero.
type Gate struct {
	notifier Notifier

	mu         sync.Mutex
	previous   int
	generation uint64
	granted    bool

	now func() time.Time
}

// NewGate creates an inert gate delivering to n.
func NewGate(n Notifier) *Gate {
	return &Gate{notifier: n, now: time.Now}
}

// Grant enables alerts.
func (g *Gate) Grant() {
	g.mu.Lock()
	g.granted = true
	g.mu.Unlock()
}

// Revoke disables alerts. Counts keep being tracked.
func (g *Gate) Revoke() {
	g.mu.Lock()
	g.granted = false
	g.mu.Unlock()
}

// Granted reports whether alerts are enabled.
func (g *Gate) Granted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// Reset forgets the previous count after a switch to mailbox generation,
// so its next observation is treated as a first population. Late
// refreshes from earlier generations are ignored from then on. A
// generation the gate has already seen is left alone.
func (g *Gate) Reset(generation uint64) {
	g.mu.Lock()
	if generation > g.generation {
		g.generation = generation
		g.previous = 0
	}
	g.mu.Unlock()
}

// Observe records an applied refresh and returns the notification it
// raised, if any. Messages are newest first.
func (g *Gate) Observe(ctx context.Context, r model.Refresh) *model.Notification {
	msgs := r.Messages
	address := r.Address

	g.mu.Lock()
	switch {
	case r.Generation < g.generation:
		g.mu.Unlock()
		log.Debug().Str("module", "notify").Str("address", address).Msg("Ignoring refresh from a previous mailbox")
		return nil
	case r.Generation > g.generation:
		g.generation = r.Generation
		g.previous = 0
	}
	prev := g.previous
	g.previous = len(msgs)
	fire := g.granted && prev > 0 && len(msgs) > prev
	g.mu.Unlock()

	if !fire {
		return nil
	}

	newest := msgs[0]
	sender := newest.From.Name
	if sender == "" {
		sender = newest.From.Address
	}
	n := model.Notification{
		MessageID: newest.ID,
		Address:   address,
		Title:     fmt.Sprintf("New email from %s", sender),
		Body:      newest.Subject,
		CreatedAt: g.now(),
	}

	log.Info().Str("module", "notify").Str("address", address).Int("previous", prev).
		Int("current", len(msgs)).Msg("New mail")

	if g.notifier != nil {
		if err := g.notifier.Notify(ctx, n); err != nil {
			log.Warn().Str("module", "notify").Err(err).Msg("Delivering notification failed")
		}
	}
	return &n
}
