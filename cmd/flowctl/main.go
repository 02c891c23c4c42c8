package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "flowctl",
		Usage:   "Inspect checkout flows, exchange credentials and manage the attempt ledger",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"FLOWCTL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
			&cli.StringFlag{
				Name:  "buyer-token",
				Usage: "Buyer access token used by auth-code",
			},
		},
		Commands: []*cli.Command{
			EligibilityCommand(),
			SelectCommand(),
			AccessTokenCommand(),
			SessionTokenCommand(),
			AuthCodeCommand(),
			ConnectURLCommand(),
			AttemptsCommand(),
		},
	}
}
