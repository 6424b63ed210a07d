package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"

	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/provider"
)

type listCmd struct{}

func (*listCmd) Name() string {
	return "list"
}

func (*listCmd) Synopsis() string {
	return "list stored addresses"
}

func (*listCmd) Usage() string {
	return `list:
	list stored addresses, newest first; the active one is marked with *
`
}

func (l *listCmd) SetFlags(f *flag.FlagSet) {}

func (l *listCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	active := svc.identities.Active()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, ident := range svc.identities.List() {
		mark := " "
		if active != nil && active.ID == ident.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, ident.Address, ident.Label, humanize.Time(ident.CreatedAt))
	}
	if err := tw.Flush(); err != nil {
		return fatal("Writing output failed", err)
	}
	return subcommands.ExitSuccess
}

type newCmd struct {
	domain string
}

func (*newCmd) Name() string {
	return "new"
}

func (*newCmd) Synopsis() string {
	return "create a new address"
}

func (*newCmd) Usage() string {
	return `new [-domain <domain>] [prefix]:
	create an address, random unless prefix is given, and make it active.
	Without -domain the first domain the provider offers is used. A -domain
	the provider does not offer is an error; nothing is created.
`
}

func (n *newCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&n.domain, "domain", "", "domain to use; the first offered when empty, an error when not offered")
}

func (n *newCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		return usage("at most one prefix")
	}
	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	ident, err := svc.identities.Provision(ctx, f.Arg(0), n.domain)
	if err != nil {
		return fatal("Creating address failed", errors.New(provisionMessage(err)))
	}
	fmt.Println(ident.Address)
	return subcommands.ExitSuccess
}

// provisionMessage keeps sentinel errors readable and shows the provider's
// description for remote failures.
func provisionMessage(err error) string {
	var apiErr *provider.APIError
	switch {
	case errors.Is(err, identity.ErrNoDomains), errors.Is(err, identity.ErrUnknownDomain),
		errors.Is(err, identity.ErrBusy):
		return err.Error()
	case errors.As(err, &apiErr):
		return provider.UserMessage(err)
	}
	return err.Error()
}

type deleteCmd struct {
	yes bool
}

func (*deleteCmd) Name() string {
	return "delete"
}

func (*deleteCmd) Synopsis() string {
	return "delete an address and its remote mailbox"
}

func (*deleteCmd) Usage() string {
	return `delete [-yes] <address>:
	permanently delete a stored address
`
}

func (d *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&d.yes, "yes", false, "do not ask for confirmation")
}

func (d *deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	address := f.Arg(0)
	if address == "" {
		return usage("address required")
	}
	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	target, ok := findIdentity(svc.identities.List(), address)
	if !ok {
		return usage("unknown address " + address)
	}

	confirm := confirmPrompt
	if d.yes {
		confirm = identity.Confirmed
	}
	removed, err := svc.identities.Delete(ctx, target.ID, confirm)
	if err != nil {
		return fatal("Deleting address failed", err)
	}
	if !removed {
		fmt.Println("Cancelled")
		return subcommands.ExitSuccess
	}
	fmt.Println("Deleted " + target.Address)
	return subcommands.ExitSuccess
}

// confirmPrompt asks on the terminal with a huh confirmation.
func confirmPrompt(prompt string) bool {
	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes, delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return err == nil && ok
}

func findIdentity(ids []model.Identity, address string) (model.Identity, bool) {
	for _, ident := range ids {
		if strings.EqualFold(ident.Address, address) || ident.ID == address {
			return ident, true
		}
	}
	return model.Identity{}, false
}

type backupCmd struct{}

func (*backupCmd) Name() string {
	return "backup"
}

func (*backupCmd) Synopsis() string {
	return "write all addresses to a backup file"
}

func (*backupCmd) Usage() string {
	return `backup:
	save addresses and passwords to burnerx-backup-<timestamp>.json in the downloads directory
`
}

func (b *backupCmd) SetFlags(f *flag.FlagSet) {}

func (b *backupCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	path, err := svc.identities.ExportBackup()
	if err != nil {
		return fatal("Backup failed", err)
	}
	fmt.Println(path)
	return subcommands.ExitSuccess
}

type restoreCmd struct{}

func (*restoreCmd) Name() string {
	return "restore"
}

func (*restoreCmd) Synopsis() string {
	return "import addresses from a backup file"
}

func (*restoreCmd) Usage() string {
	return `restore <file>:
	log back in to every address in the backup and add the new ones
`
}

func (r *restoreCmd) SetFlags(f *flag.FlagSet) {}

func (r *restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	path := f.Arg(0)
	if path == "" {
		return usage("backup file required")
	}
	file, err := os.Open(path)
	if err != nil {
		return fatal("Opening backup failed", err)
	}
	defer file.Close()

	svc, err := openServices(ctx)
	if err != nil {
		return fatal("Startup failed", err)
	}
	defer svc.Close()

	report, err := svc.identities.ImportBackup(ctx, file)
	if err != nil {
		return fatal("Restore failed", err)
	}
	fmt.Println(report)
	if report.Failed > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
