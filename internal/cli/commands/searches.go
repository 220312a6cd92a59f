package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/epitopelab/bindscope/internal/state"
)

// NewSearchesCommand creates the searches command group.
func NewSearchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searches",
		Short: "Manage saved prediction searches",
		Long:  `List, save, and delete prediction parameter sets stored locally.`,
	}

	cmd.AddCommand(newSearchesListCommand())
	cmd.AddCommand(newSearchesSaveCommand())
	cmd.AddCommand(newSearchesDeleteCommand())
	cmd.AddCommand(newSearchesHistoryCommand())

	return cmd
}

func newSearchesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved searches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(store state.Store) error {
				searches, err := store.ListSearches()
				if err != nil {
					return err
				}
				if len(searches) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no saved searches)")
					return nil
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "Name", "Tool Group", "Method", "Alleles", "Lengths", "Updated"})
				for _, s := range searches {
					t.AppendRow(table.Row{
						s.ID, s.Name, s.ToolGroup, s.Method,
						truncate(s.Alleles, 40),
						fmt.Sprintf("%d-%d", s.LengthMin, s.LengthMax),
						s.UpdatedAt.Format("2006-01-02 15:04"),
					})
				}
				t.Render()
				return nil
			})
		},
	}
}

func newSearchesSaveCommand() *cobra.Command {
	var (
		toolGroup string
		method    string
		alleles   []string
		lengthMin int
		lengthMax int
		sequence  string
	)

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a search under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(alleles) == 0 {
				return fmt.Errorf("at least one allele is required")
			}
			return withStore(cmd, func(store state.Store) error {
				s := &state.SavedSearch{
					Name:         args[0],
					ToolGroup:    toolGroup,
					Method:       method,
					Alleles:      strings.Join(alleles, ","),
					LengthMin:    lengthMin,
					LengthMax:    lengthMax,
					SequenceText: sequence,
				}
				if err := store.CreateSearch(s); err != nil {
					return err
				}
				styles := DefaultStyles()
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s saved search %s (%s)\n",
					styles.Success.Render("OK:"), s.Name, s.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&toolGroup, "tool-group", "mhci", "tool group (mhci or mhcii)")
	cmd.Flags().StringVar(&method, "method", "netmhcpan_el", "prediction method")
	cmd.Flags().StringSliceVar(&alleles, "alleles", nil, "alleles to predict for")
	cmd.Flags().IntVar(&lengthMin, "length-min", 8, "minimum peptide length")
	cmd.Flags().IntVar(&lengthMax, "length-max", 11, "maximum peptide length")
	cmd.Flags().StringVar(&sequence, "sequence", "", "optional sequence to store with the search")

	return cmd
}

func newSearchesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store state.Store) error {
				if err := store.DeleteSearch(args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newSearchesHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent prediction runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(store state.Store) error {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no runs yet)")
					return nil
				}

				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Title", "Method", "Alleles", "Seq Len", "Status", "Submitted"})
				for _, r := range runs {
					t.AppendRow(table.Row{
						truncate(r.Title, 30), r.Method, truncate(r.Alleles, 40),
						r.SeqLength, r.Status, r.SubmittedAt.Format("2006-01-02 15:04"),
					})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "runs to show (0 for all)")

	return cmd
}

// withStore opens the state database for the duration of one command.
func withStore(cmd *cobra.Command, fn func(state.Store) error) error {
	cfg := GetConfig(cmd.Context())
	defer Cleanup(cmd.Context())

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer func() { _ = store.Close() }()

	return fn(store)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
