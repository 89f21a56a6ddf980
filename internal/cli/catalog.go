package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskdesk/pkg/models"
)

var (
	locationsCmd     = newCatalogCmd(models.CatalogLocations, "Manage the locations employees can be placed at")
	jobCategoriesCmd = newCatalogCmd(models.CatalogJobCategories, "Manage the job categories employees can be filed under")
)

// newCatalogCmd builds the list/add pair for one catalog. Listing needs any
// session; adding needs an administrator.
func newCatalogCmd(kind models.CatalogKind, short string) *cobra.Command {
	parent := &cobra.Command{
		Use:   string(kind),
		Short: short,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", kind),
		Args:  cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, args []string) error {
			client, _, err := sessionClient()
			if err != nil {
				return err
			}
			entries, err := client.ListCatalog(context.Background(), kind)
			if err != nil {
				return err
			}
			if wantJSON() {
				if entries == nil {
					entries = []models.CatalogEntry{}
				}
				return printJSON(cmd, entries)
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(w, "No %s defined.\n", kind)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(w, "  %s\n", e.Name)
			}
			return nil
		}),
	}

	add := &cobra.Command{
		Use:   "add <name...>",
		Short: fmt.Sprintf("Add a %s (administrators)", kind.Singular()),
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(func(cmd *cobra.Command, args []string) error {
			client, _, err := sessionClient()
			if err != nil {
				return err
			}
			entry, err := client.AddCatalogEntry(context.Background(), kind, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if wantJSON() {
				return printJSON(cmd, entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q\n", kind.Singular(), entry.Name)
			return nil
		}),
	}

	parent.AddCommand(list, add)
	return parent
}

func init() {
	rootCmd.AddCommand(locationsCmd, jobCategoriesCmd)
}
