package cli

import (
	"context"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/spf13/cobra"
)

// NewCategoriesCommand creates the categories command group
func NewCategoriesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category", "c"},
		Short:   "List and create categories",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List categories by display order",
		Args:  cobra.NoArgs,
	}
	list.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		categories, st, err := app.Hooks.Categories(ctx)
		if categories == nil && err != nil {
			return err
		}
		if err != nil {
			app.Log.Warn().Err(err).Bool("from_mirror", st.FromMirror).Msg("Showing last known categories")
		}
		return app.Printer.Categories(categories)
	})

	var file string
	create := &cobra.Command{
		Use:   "create --file category.json",
		Short: "Create a category from a JSON document",
		Args:  cobra.NoArgs,
	}
	create.Flags().StringVarP(&file, "file", "f", "-", "JSON file, - for stdin")
	create.RunE = opts.run(func(ctx context.Context, app *App, args []string) error {
		var in models.CategoryInput
		if err := readJSON(create.InOrStdin(), file, &in); err != nil {
			return err
		}

		category, err := app.Client.CreateCategory(ctx, &in)
		if err != nil {
			return err
		}
		return app.Printer.Message(category, "created "+category.Slug)
	})

	cmd.AddCommand(list, create)
	return cmd
}
