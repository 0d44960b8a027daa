package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/ideas/internal/backend"
	"github.com/mesh-intelligence/ideas/internal/filter"
	"github.com/mesh-intelligence/ideas/internal/pager"
	"github.com/mesh-intelligence/ideas/pkg/types"
)

// listResult is the JSON shape of list output.
type listResult struct {
	Page    int          `json:"page"`
	HasMore bool         `json:"has_more"`
	Ideas   []types.Idea `json:"ideas"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		page     int
		all      bool
		pageSize int
		search   string
		sortBy   string
		order    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ideas, newest first",
		Long: `List shows one page of ideas ordered by creation time, newest first.
--search keeps ideas whose title or description contains the text
(case-insensitive). --sort and --order reorder the page that was loaded.

Example:
  ideas list
  ideas list --page 1
  ideas list --all --search trip --sort rating --order desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 0 {
				return fmt.Errorf("--page must be >= 0, got %d", page)
			}
			if all && cmd.Flags().Changed("page") {
				return fmt.Errorf("--page and --all are mutually exclusive")
			}
			by, err := types.ParseSortBy(sortBy)
			if err != nil {
				return err
			}
			dir, err := types.ParseSortOrder(order)
			if err != nil {
				return err
			}
			opts := types.FilterOptions{SearchQuery: search, SortBy: by, SortOrder: dir}

			return a.withBackend(cmd.Context(), func(b *backend.Backend) error {
				size := b.PageSize()
				if pageSize > 0 {
					size = pageSize
				}
				p := pager.New(b.Store(), size, a.log)

				if all {
					if _, err := p.LoadAll(cmd.Context()); err != nil {
						return err
					}
				} else if err := p.LoadPage(cmd.Context(), page); err != nil {
					return err
				}

				ideas := p.Items()
				if !opts.IsDefault() {
					ideas = filter.Apply(ideas, opts)
				}

				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), listResult{Page: p.Page(), HasMore: p.HasMore(), Ideas: ideas})
				}
				if err := printTable(cmd.OutOrStdout(), ideas); err != nil {
					return err
				}
				if !all && p.HasMore() {
					fmt.Fprintf(cmd.OutOrStdout(), "\nMore ideas: ideas list --page %d\n", p.Page()+1)
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&page, "page", 0, "zero-based page to show")
	f.BoolVar(&all, "all", false, "load every page")
	f.IntVar(&pageSize, "page-size", 0, "ideas per page (default: page_size from config)")
	f.StringVarP(&search, "search", "s", "", "case-insensitive text to match in title or description")
	f.StringVar(&sortBy, "sort", "date", "sort key: date or rating")
	f.StringVar(&order, "order", "desc", "sort order: asc or desc")
	return cmd
}
