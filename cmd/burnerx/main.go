// Command burnerx is a terminal client for disposable email addresses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"github.com/nhle/burnerx/internal/model"
)

var (
	configPath = flag.String("config", model.DefaultConfigPath(), "path to the configuration file")
	envFile    = flag.String("env", ".env", "optional dotenv file with BURNERX_ overrides")
	logLevel   = flag.String("log-level", "", "override log.level (debug, info, warn, error)")
)

func main() {
	subcommands.ImportantFlag("config")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&tuiCmd{}, "")
	subcommands.Register(&listCmd{}, "identities")
	subcommands.Register(&newCmd{}, "identities")
	subcommands.Register(&deleteCmd{}, "identities")
	subcommands.Register(&backupCmd{}, "identities")
	subcommands.Register(&restoreCmd{}, "identities")
	subcommands.Register(&shareDecodeCmd{}, "")

	flag.Parse()
	ctx := context.Background()

	// No subcommand starts the terminal UI.
	if flag.NArg() == 0 {
		os.Exit(int((&tuiCmd{}).Execute(ctx, flag.CommandLine)))
	}
	os.Exit(int(subcommands.Execute(ctx)))
}

// loadConfig reads the dotenv file (if any) and the configuration.
func loadConfig() (*model.AppConfig, error) {
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading %s: %w", *envFile, err)
	}
	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return nil, err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	return cfg, nil
}

func fatal(msg string, err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	return subcommands.ExitFailure
}

func usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, msg)
	return subcommands.ExitUsageError
}
