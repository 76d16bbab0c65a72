package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/breakthrough-cafe/cafe-cms/internal/client"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/spf13/cobra"
)

// NewArticlesCommand creates the articles command group
func NewArticlesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article", "a"},
		Short:   "List, show and edit articles",
	}

	cmd.AddCommand(newArticlesListCommand(opts))
	cmd.AddCommand(newArticlesGetCommand(opts))
	cmd.AddCommand(newArticlesCreateCommand(opts))
	cmd.AddCommand(newArticlesUpdateCommand(opts))
	cmd.AddCommand(newArticlesDeleteCommand(opts))
	return cmd
}

// listFlags are shared by "articles list" and "watch articles"
type listFlags struct {
	category  string
	featured  bool
	status    string
	limit     int
	skip      int
	sortBy    string
	sortOrder string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.category, "category", "", "only this category slug")
	cmd.Flags().BoolVar(&f.featured, "featured", false, "only featured (or, with =false, only non-featured) articles")
	cmd.Flags().StringVar(&f.status, "status", "", "only this status (draft|published)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size (server default 10, max 100)")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "articles to skip")
	cmd.Flags().StringVar(&f.sortBy, "sort-by", "", "updatedAt|createdAt|publishedAt|views|title")
	cmd.Flags().StringVar(&f.sortOrder, "sort-order", "", "asc|desc")
}

func (f *listFlags) options(cmd *cobra.Command) client.ListOptions {
	o := client.ListOptions{
		Category:  f.category,
		Status:    models.ArticleStatus(f.status),
		Limit:     f.limit,
		Skip:      f.skip,
		SortBy:    f.sortBy,
		SortOrder: f.sortOrder,
	}
	if cmd.Flags().Changed("featured") {
		featured := f.featured
		o.IsFeatured = &featured
	}
	return o
}

func newArticlesListCommand(opts *RootOptions) *cobra.Command {
	flags := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Args:  cobra.NoArgs,
	}
	flags.register(cmd)

	cmd.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		list, st, err := app.Hooks.Articles(ctx, flags.options(cmd))
		if list == nil {
			return err
		}
		if err != nil {
			app.Log.Warn().Err(err).Bool("from_mirror", st.FromMirror).Msg("Showing last known articles")
		}
		return app.Printer.ArticleList(list)
	})
	return cmd
}

func newArticlesGetCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one article (counts as a view)",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		article, st, err := app.Hooks.Article(ctx, args[0])
		if article == nil {
			return err
		}
		if err != nil {
			app.Log.Warn().Err(err).Bool("from_mirror", st.FromMirror).Msg("Showing last known article")
		}
		return app.Printer.Article(article)
	})
	return cmd
}

func newArticlesCreateCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create --file article.json",
		Short: "Create an article from a JSON document",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")

	cmd.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		var in models.ArticleInput
		if err := readJSON(cmd.InOrStdin(), file, &in); err != nil {
			return err
		}

		article, err := app.Client.CreateArticle(ctx, &in)
		if err != nil {
			return err
		}
		return app.Printer.Message(article, "created "+article.ID)
	})
	return cmd
}

func newArticlesUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		file     string
		status   string
		featured bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of an article",
		Long:  "Apply a partial update. Fields missing from the JSON document are left unchanged; --status and --featured override it.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON patch file, - for stdin")
	cmd.Flags().StringVar(&status, "status", "", "set status (draft|published)")
	cmd.Flags().BoolVar(&featured, "featured", false, "set isFeatured")

	cmd.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		var p models.ArticlePatch
		if file != "" {
			if err := readJSON(cmd.InOrStdin(), file, &p); err != nil {
				return err
			}
		}
		if status != "" {
			s := models.ArticleStatus(status)
			p.Status = &s
		}
		if cmd.Flags().Changed("featured") {
			p.IsFeatured = &featured
		}

		article, err := app.Client.UpdateArticle(ctx, args[0], &p)
		if err != nil {
			return err
		}
		return app.Printer.Article(article)
	})
	return cmd
}

func newArticlesDeleteCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		if err := app.Client.DeleteArticle(ctx, args[0]); err != nil {
			return err
		}
		return app.Printer.Message(map[string]any{"success": true, "id": args[0]}, "deleted "+args[0])
	})
	return cmd
}

// readJSON decodes path (or stdin for "-") into v
func readJSON(stdin io.Reader, path string, v any) error {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid JSON in %s", path), err)
	}
	return nil
}
