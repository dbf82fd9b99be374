package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"breakouttracker/internal/config"
	"breakouttracker/internal/quote"
	"breakouttracker/internal/watchlist"
)

// cli owns the command tree and the app built for the running command.
type cli struct {
	root *cobra.Command
	app  *app
}

func newCLI() *cli {
	c := &cli{}

	c.root = &cobra.Command{
		Use:           "breakouttracker",
		Short:         "Track tickers against their breakout levels with live quotes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			c.app, err = newApp(cfg)
			return err
		},
	}

	appFn := func() *app { return c.app }
	c.root.AddCommand(
		newQuoteCmd(appFn),
		newListCmd(appFn),
		newAddCmd(appFn),
		newEditCmd(appFn),
		newRemoveCmd(appFn),
	)
	return c
}

// Execute runs the command line and releases the app whether or not the
// command succeeded.
func (c *cli) Execute(ctx context.Context) error {
	defer func() {
		if c.app != nil {
			c.app.Close()
		}
	}()
	return c.root.ExecuteContext(ctx)
}

func newQuoteCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote TICKER...",
		Short: "Fetch live quotes for one or more tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quotes := appFn().quotes.FetchMany(cmd.Context(), args)
			return printQuotes(cmd.OutOrStdout(), args, quotes)
		},
	}
}

func newListCmd(appFn func() *app) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the watchlist with live prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFn()
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			items, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			items = watchlist.Filter(items, search)
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tickers yet. Add one with `breakouttracker add`.")
				return nil
			}

			quotes := a.quotes.FetchMany(cmd.Context(), watchlist.Tickers(items))
			return printRows(cmd.OutOrStdout(), watchlist.Overlay(items, quotes))
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only show rows whose ticker, breakout or notes contain this text")
	return cmd
}

func newAddCmd(appFn func() *app) *cobra.Command {
	var breakout, notes string

	cmd := &cobra.Command{
		Use:   "add TICKER",
		Short: "Add a ticker to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := appFn().writableStore(cmd.Context())
			if err != nil {
				return err
			}

			item, err := store.Insert(cmd.Context(), watchlist.NewItem{
				Ticker:   args[0],
				Breakout: breakout,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", item.Ticker, item.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&breakout, "breakout", "b", "", "breakout price level")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "free-text notes")
	return cmd
}

func newEditCmd(appFn func() *app) *cobra.Command {
	var breakout, notes string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the breakout level and notes of a watchlist row",
		Long:  "Change the breakout level and notes of a watchlist row. Fields whose flag is not given keep their current value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			var changes watchlist.Changes
			if cmd.Flags().Changed("breakout") {
				changes.Breakout = &breakout
			}
			if cmd.Flags().Changed("notes") {
				changes.Notes = &notes
			}
			if changes == (watchlist.Changes{}) {
				return errors.New("nothing to change: pass --breakout and/or --notes")
			}

			store, err := appFn().writableStore(cmd.Context())
			if err != nil {
				return err
			}

			item, err := store.Update(cmd.Context(), id, changes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: breakout %q, notes %q\n", item.Ticker, item.Breakout, item.Notes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&breakout, "breakout", "b", "", "breakout price level")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "free-text notes")
	return cmd
}

func newRemoveCmd(appFn func() *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Remove a row from the watchlist",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			store, err := appFn().writableStore(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return nil
		},
	}
}

// printQuotes writes one line per requested ticker, in request order.
func printQuotes(w io.Writer, tickers []string, quotes map[string]quote.Quote) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPRICE\tCHANGE\tOPEN\tHIGH\tLOW\tPREV CLOSE")
	for _, raw := range tickers {
		t, ok := quote.NormalizeTicker(raw)
		if !ok {
			continue
		}
		q, ok := quotes[t]
		if !ok {
			fmt.Fprintf(tw, "%s\tN/A\t\t\t\t\t\n", t)
			continue
		}
		fmt.Fprintf(tw, "%s\t$%.2f\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			t, q.CurrentPrice, formatChange(q), q.Open, q.High, q.Low, q.PreviousClose)
	}
	return tw.Flush()
}

// printRows writes the watchlist table.
func printRows(w io.Writer, rows []watchlist.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TICKER\tPRICE\tCHANGE\tBREAKOUT\tNOTES\tADDED\tID")
	for _, r := range rows {
		price, change := "N/A", ""
		if r.Quote != nil {
			price = fmt.Sprintf("$%.2f", r.Quote.CurrentPrice)
			change = formatChange(*r.Quote)
		}

		breakout := r.Breakout
		if r.AboveBreakout {
			breakout += " ✓"
		}

		added := ""
		if !r.CreatedAt.IsZero() {
			added = r.CreatedAt.Local().Format("2006-01-02")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Ticker, price, change, breakout, oneLine(r.Notes), added, r.ID)
	}
	return tw.Flush()
}

func formatChange(q quote.Quote) string {
	arrow := "▲"
	if q.Change < 0 {
		arrow = "▼"
	}
	return fmt.Sprintf("%s %.2f (%.2f%%)", arrow, q.Change, q.ChangePercent)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
