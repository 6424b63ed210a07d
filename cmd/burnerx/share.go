package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/nhle/burnerx/internal/export"
)

type shareDecodeCmd struct{}

func (*shareDecodeCmd) Name() string {
	return "share-decode"
}

func (*shareDecodeCmd) Synopsis() string {
	return "print the message summary carried by a share link"
}

func (*shareDecodeCmd) Usage() string {
	return `share-decode <link>:
	decode the fragment of a share link
`
}

func (s *shareDecodeCmd) SetFlags(f *flag.FlagSet) {}

func (s *shareDecodeCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	link := f.Arg(0)
	if link == "" {
		return usage("link required")
	}
	p, err := export.DecodeShareLink(link)
	if err != nil {
		return fatal("Invalid share link", err)
	}
	fmt.Printf("Subject: %s\nFrom:    %s\nDate:    %s\n\n%s\n", p.Subject, p.From, p.Date, p.Body)
	return subcommands.ExitSuccess
}
