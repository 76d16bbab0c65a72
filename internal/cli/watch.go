package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/swr"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command group. Each subcommand keeps a
// live subscription open and reprints whenever the data changes.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	var poll time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print a list every time it changes",
	}
	cmd.PersistentFlags().DurationVar(&poll, "poll", 30*time.Second, "revalidate this often (0 disables polling)")

	flags := &listFlags{}
	articles := &cobra.Command{
		Use:   "articles",
		Short: "Watch an article list",
		Args:  cobra.NoArgs,
	}
	flags.register(articles)
	articles.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		updates := make(chan func() error, 1)
		unsubscribe := app.Hooks.WatchArticles(flags.options(articles), func(list *models.ArticleList, st swr.State) {
			send(updates, func() error {
				return printUpdate(app, st, list != nil, func() error { return app.Printer.ArticleList(list) })
			})
		})
		defer unsubscribe()
		return watchLoop(ctx, app, poll, updates)
	})

	categories := &cobra.Command{
		Use:   "categories",
		Short: "Watch the category list",
		Args:  cobra.NoArgs,
	}
	categories.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		updates := make(chan func() error, 1)
		unsubscribe := app.Hooks.WatchCategories(func(list []*models.Category, st swr.State) {
			send(updates, func() error {
				return printUpdate(app, st, list != nil, func() error { return app.Printer.Categories(list) })
			})
		})
		defer unsubscribe()
		return watchLoop(ctx, app, poll, updates)
	})

	cmd.AddCommand(articles, categories)
	return cmd
}

// send keeps only the newest pending update
func send(updates chan func() error, fn func() error) {
	for {
		select {
		case updates <- fn:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

func printUpdate(app *App, st swr.State, hasData bool, print func() error) error {
	if st.Err != nil {
		app.Log.Warn().Err(st.Err).Msg("Refresh failed")
	}
	if !hasData {
		return nil
	}
	if st.FromMirror {
		fmt.Fprintln(app.Printer.Writer, "(from local mirror)")
	}
	return print()
}

// watchLoop prints updates until ctx ends. Polling stands in for the focus
// trigger of an interactive client.
func watchLoop(ctx context.Context, app *App, poll time.Duration, updates <-chan func() error) error {
	var tick <-chan time.Time
	if poll > 0 {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-updates:
			if err := fn(); err != nil {
				return err
			}
		case <-tick:
			app.Cache.Focus()
		}
	}
}
