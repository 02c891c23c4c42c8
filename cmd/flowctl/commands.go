package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/goliatone/go-checkout/adapters/gocommand"
	"github.com/goliatone/go-checkout/adapters/gojob"
	checkoutcommand "github.com/goliatone/go-checkout/command"
	"github.com/goliatone/go-checkout/core"
	checkoutquery "github.com/goliatone/go-checkout/query"
	"github.com/urfave/cli/v2"
)

func sessionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "client-id", Usage: "Merchant client id", Required: true},
		&cli.BoolFlag{Name: "branded", Usage: "Merchant session renders branded buttons"},
		&cli.StringFlag{Name: "payment-method-token", Usage: "Vaulted payment method token of the session"},
		&cli.StringFlag{Name: "wallet", Usage: "Read service data from JSON `FILE`"},
		&cli.StringFlag{Name: "funding-source", Usage: "Funding source chosen by the buyer", Value: string(core.FundingPayPal)},
		&cli.StringFlag{Name: "payment-method-id", Usage: "Instrument chosen by the buyer"},
	}
}

func readSession(c *cli.Context) (core.FlowContext, core.PaymentSelection, error) {
	fc := core.FlowContext{
		Merchant: core.MerchantConfig{
			ClientID:           c.String("client-id"),
			Branded:            c.Bool("branded"),
			PaymentMethodToken: c.String("payment-method-token"),
		},
	}
	if path := c.String("wallet"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return core.FlowContext{}, core.PaymentSelection{}, fmt.Errorf("read wallet: %w", err)
		}
		if err := json.Unmarshal(raw, &fc.ServiceData); err != nil {
			return core.FlowContext{}, core.PaymentSelection{}, fmt.Errorf("decode wallet: %w", err)
		}
	}
	selection := core.PaymentSelection{
		FundingSource:   core.NormalizeFundingSource(c.String("funding-source")),
		PaymentMethodID: c.String("payment-method-id"),
	}
	return fc, selection, nil
}

func EligibilityCommand() *cli.Command {
	return &cli.Command{
		Name:   "eligibility",
		Usage:  "Report which flows are eligible for a session and payment selection",
		Flags:  sessionFlags(),
		Action: runEligibility,
	}
}

func runEligibility(c *cli.Context) error {
	fc, selection, err := readSession(c)
	if err != nil {
		return err
	}
	rt, err := newRuntime(c, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	verdicts, err := gocommand.Query[checkoutquery.EvaluateFlowsMessage, []core.FlowVerdict](c.Context, checkoutquery.EvaluateFlowsMessage{
		Context:   fc,
		Selection: selection,
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, verdicts)
}

func SelectCommand() *cli.Command {
	return &cli.Command{
		Name:   "select",
		Usage:  "Show the flow that would run for a session and payment selection",
		Flags:  sessionFlags(),
		Action: runSelect,
	}
}

func runSelect(c *cli.Context) error {
	fc, selection, err := readSession(c)
	if err != nil {
		return err
	}
	rt, err := newRuntime(c, runtimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	selected, err := gocommand.Query[checkoutquery.SelectFlowMessage, checkoutquery.SelectedFlow](c.Context, checkoutquery.SelectFlowMessage{
		Context:   fc,
		Selection: selection,
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, selected)
}

func AccessTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "access-token",
		Usage: "Exchange client credentials for a service access token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "client-id", Usage: "Merchant client id", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			token, err := dispatchResult[checkoutcommand.CreateAccessTokenMessage, string](c.Context, checkoutcommand.CreateAccessTokenMessage{
				ClientID: c.String("client-id"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func SessionTokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "session-token",
		Usage: "Exchange a session uid for a session token",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session-uid", Usage: "Session uid", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			token, err := dispatchResult[checkoutcommand.ExchangeSessionTokenMessage, string](c.Context, checkoutcommand.ExchangeSessionTokenMessage{
				SessionUID: c.String("session-uid"),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func AuthCodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth-code",
		Usage: "Exchange the buyer access token for an auth code",
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			code, err := dispatchResult[checkoutcommand.ExchangeAuthCodeMessage, string](c.Context, checkoutcommand.ExchangeAuthCodeMessage{})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, code)
			return nil
		},
	}
}

func ConnectURLCommand() *cli.Command {
	return &cli.Command{
		Name:  "connect-url",
		Usage: "Resolve the identity connect URL for a client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "client-id", Usage: "Merchant client id", Required: true},
			&cli.StringSliceFlag{Name: "scope", Usage: "Requested scope, repeatable", Value: cli.NewStringSlice("openid")},
			&cli.StringFlag{Name: "funding-source", Usage: "Funding source", Value: string(core.FundingPayPal)},
			&cli.StringFlag{Name: "response-type", Usage: "OAuth response type", Value: "code"},
			&cli.StringFlag{Name: "billing-type", Usage: "Billing agreement type"},
		},
		Action: func(c *cli.Context) error {
			rt, err := newRuntime(c, runtimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close()

			href, err := gocommand.Query[checkoutquery.ConnectURLMessage, string](c.Context, checkoutquery.ConnectURLMessage{
				Input: core.ConnectURLInput{
					ClientID:      c.String("client-id"),
					FundingSource: core.NormalizeFundingSource(c.String("funding-source")),
					Scopes:        c.StringSlice("scope"),
					ResponseType:  c.String("response-type"),
					BillingType:   c.String("billing-type"),
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, href)
			return nil
		},
	}
}

func AttemptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "attempts",
		Usage: "Inspect and prune the attempt ledger",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded attempt transitions, oldest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "attempt-id"},
					&cli.StringFlag{Name: "flow"},
					&cli.StringFlag{Name: "order-id"},
					&cli.DurationFlag{Name: "since", Usage: "Only transitions newer than this age"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "per-page", Value: 25},
				},
				Action: runAttemptsList,
			},
			{
				Name:  "prune",
				Usage: "Delete transitions older than the retention window",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Value: 30 * 24 * time.Hour},
					&cli.BoolFlag{Name: "queue", Usage: "Enqueue the prune as a background job instead of running it"},
				},
				Action: runAttemptsPrune,
			},
			{
				Name:   "work",
				Usage:  "Run queued ledger jobs until none are available",
				Action: runAttemptsWork,
			},
		},
	}
}

func runAttemptsList(c *cli.Context) error {
	rt, err := newRuntime(c, runtimeOptions{ledger: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	filter := core.AttemptEventFilter{
		AttemptID: c.String("attempt-id"),
		Flow:      c.String("flow"),
		OrderID:   c.String("order-id"),
		Page:      c.Int("page"),
		PerPage:   c.Int("per-page"),
	}
	if since := c.Duration("since"); since > 0 {
		filter.Since = time.Now().UTC().Add(-since)
	}
	page, err := gocommand.Query[checkoutquery.ListAttemptEventsMessage, core.AttemptEventPage](c.Context, checkoutquery.ListAttemptEventsMessage{
		Filter: filter,
	})
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, page)
}

func runAttemptsPrune(c *cli.Context) error {
	queued := c.Bool("queue")
	rt, err := newRuntime(c, runtimeOptions{ledger: true, jobs: queued})
	if err != nil {
		return err
	}
	defer rt.Close()

	if queued {
		receipt, err := gojob.EnqueuePrune(c.Context, rt.jobQueue, rt.jobs, c.Duration("older-than"))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "queued attempt prune %s\n", receipt.DispatchID)
		return nil
	}

	deleted, err := dispatchResult[checkoutcommand.PruneAttemptEventsMessage, int](c.Context, checkoutcommand.PruneAttemptEventsMessage{
		OlderThan: c.Duration("older-than"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pruned %d attempt events\n", deleted)
	return nil
}

func runAttemptsWork(c *cli.Context) error {
	rt, err := newRuntime(c, runtimeOptions{ledger: true, jobs: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	worker, err := rt.jobWorker()
	if err != nil {
		return err
	}
	report, err := worker.Drain(c.Context)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "processed %d jobs: %d succeeded, %d retried, %d failed\n",
		report.Processed(), report.Succeeded, report.Retried, report.Failed)
	return nil
}
