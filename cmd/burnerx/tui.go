package main

import (
	"context"
	"flag"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nhle/burnerx/internal/app"
	"github.com/nhle/burnerx/internal/export"
	"github.com/nhle/burnerx/internal/mailbox"
	"github.com/nhle/burnerx/internal/notify"
	"github.com/nhle/burnerx/internal/platform"
	appsync "github.com/nhle/burnerx/internal/sync"
	"github.com/nhle/burnerx/internal/theme"
)

type tuiCmd struct {
	theme string
}

func (*tuiCmd) Name() string {
	return "tui"
}

func (*tuiCmd) Synopsis() string {
	return "open the interactive mailbox (default)"
}

func (*tuiCmd) Usage() string {
	return `tui [-theme dark|light]:
	browse the active mailbox; new mail is fetched every few seconds
`
}

func (t *tuiCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&t.theme, "theme", "", "force the dark or light theme")
}

func (t *tuiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	forced := svc.cfg.Display.Theme
	if t.theme != "" {
		forced = t.theme
	}
	mode, err := theme.Load(ctx, svc.kv, forced)
	if err != nil {
		log.Warn().Str("module", "main").Err(err).Msg("Using default theme")
	}

	clip := platform.SystemClipboard{}
	session := mailbox.NewSession(svc.client, svc.saver, clip)
	gate := notify.NewGate(notify.LogNotifier{Log: svc.db})
	poller := appsync.New(session, gate, svc.cfg.Poll.Interval())

	root := app.New(app.Deps{
		Identities:    svc.identities,
		Session:       session,
		Gate:          gate,
		Poller:        poller,
		Exporter:      export.New(svc.saver),
		KV:            svc.kv,
		Notifications: svc.db,
		Clipboard:     clip,
		Fs:            afero.NewOsFs(),
		Config:        svc.cfg,
		Theme:         mode,
	})

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()
	poller.Stop()
	session.Close()
	if runErr != nil {
		return fatal("Terminal UI failed", runErr)
	}
	return subcommands.ExitSuccess
}
