package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/mailbox"
)

// snapshotMsg carries the latest mailbox session state.
type snapshotMsg mailbox.Snapshot

// identitiesChangedMsg is sent after the identity store changed.
type identitiesChangedMsg identity.Change

// bridge forwards observer callbacks from the session and the identity
// store into the Bubble Tea loop. Each channel holds only the newest
// value, so a slow UI skips intermediate states instead of blocking the
// caller.
type bridge struct {
	snapshots chan mailbox.Snapshot
	changes   chan identity.Change
	done      chan struct{}
	cancel    func()
}

func newBridge(session *mailbox.Session, ids *identity.Store) *bridge {
	b := &bridge{
		snapshots: make(chan mailbox.Snapshot, 1),
		changes:   make(chan identity.Change, 1),
		done:      make(chan struct{}),
	}
	b.cancel = session.Subscribe(func(s mailbox.Snapshot) { replace(b.snapshots, s) })
	ids.OnChange(func(c identity.Change) {
		// Coalescing would lose ActiveChanged, so merge it into the
		// pending change.
		select {
		case prev := <-b.changes:
			c.ActiveChanged = c.ActiveChanged || prev.ActiveChanged
		default:
		}
		replace(b.changes, c)
	})
	return b
}

// replace puts v into ch, dropping the pending value if there is one.
func replace[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *bridge) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-b.snapshots:
			return snapshotMsg(s)
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-b.changes:
			return identitiesChangedMsg(c)
		case <-b.done:
			return nil
		}
	}
}

func (b *bridge) close() {
	select {
	case <-b.done:
	default:
		b.cancel()
		close(b.done)
	}
}
