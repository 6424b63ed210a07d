package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 5 * time.Second

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// Mailbox is the session the poller refreshes.
type Mailbox interface {
	Identity() *model.Identity
	RefreshMessages(ctx context.Context) (model.Refresh, bool)
}

// Observer is told about every applied refresh.
type Observer interface {
	Observe(ctx context.Context, r model.Refresh) *model.Notification
}

// RefreshedMsg is a tea.Msg sent after every applied refresh.
type RefreshedMsg struct {
	Address  string
	Messages []model.MessageSummary

	// Notification is set when the refresh brought new mail and alerts
	// are enabled.
	Notification *model.Notification
}

// Poller refreshes the mailbox on a fixed interval until stopped.
// Failed refreshes are skipped silently; the next tick tries again.
type Poller struct {
	mailbox  Mailbox
	observer Observer
	interval time.Duration

	resultCh  chan RefreshedMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        gosync.WaitGroup

	mu      gosync.Mutex
	running bool
	stopped bool
}

// New creates a poller. observer may be nil. A non-positive interval
// means DefaultInterval.
func New(mb Mailbox, observer Observer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		mailbox:   mb,
		observer:  observer,
		interval:  interval,
		resultCh:  make(chan RefreshedMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that waits
// for the first result. Calling Start again is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts polling and waits for an in-flight refresh to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.stopped = true
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
}

// Trigger requests an immediate refresh, e.g. after an identity switch.
func (p *Poller) Trigger() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh
// result. Call it again after each RefreshedMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case result := <-p.resultCh:
			return result
		case <-p.stopCh:
			return nil
		}
	}
}

func (p *Poller) loop() {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.triggerCh:
			p.refresh(ctx)
		}
	}
}

// refresh performs one refresh and publishes the result.
func (p *Poller) refresh(parent context.Context) {
	if p.mailbox.Identity() == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, fetchTimeout)
	defer cancel()

	r, ok := p.mailbox.RefreshMessages(ctx)
	if !ok {
		return
	}

	result := RefreshedMsg{Address: r.Address, Messages: r.Messages}
	if p.observer != nil {
		result.Notification = p.observer.Observe(ctx, r)
	}

	select {
	case p.resultCh <- result:
	default:
		log.Debug().Str("module", "sync").Msg("Result channel full, dropping refresh result")
	}
}
