package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/state"
	exporttable "github.com/epitopelab/bindscope/internal/table"
)

// PredictOptions holds options for the predict command.
type PredictOptions struct {
	Sequence     string
	SequenceFile string
	ToolGroup    string
	Method       string
	Alleles      []string
	LengthMin    int
	LengthMax    int
	Title        string
	Format       string
	Out          string
	Limit        int
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	opts := &PredictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a binding prediction from the command line",
		Long: `Submit a sequence for binding prediction, wait for completion, and
print the relevant peptides. With --out the table is also written as
CSV or XLSX depending on the file extension.`,
		Example: `  # Predict 9-mers for two alleles
  bindscope predict --sequence MSIINFEKL... \
    --alleles "HLA-A*02:01,HLA-B*07:02" --length-min 9 --length-max 9

  # Read the sequence from a FASTA file and export CSV
  bindscope predict --sequence-file spike.fasta --out spike.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredict(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Sequence, "sequence", "", "protein sequence (plain or FASTA)")
	cmd.Flags().StringVar(&opts.SequenceFile, "sequence-file", "", "file containing the sequence")
	cmd.Flags().StringVar(&opts.ToolGroup, "tool-group", "mhci", "tool group (mhci or mhcii)")
	cmd.Flags().StringVar(&opts.Method, "method", "netmhcpan_el", "prediction method")
	cmd.Flags().StringSliceVar(&opts.Alleles, "alleles", nil, "alleles to predict for")
	cmd.Flags().IntVar(&opts.LengthMin, "length-min", 8, "minimum peptide length")
	cmd.Flags().IntVar(&opts.LengthMax, "length-max", 11, "maximum peptide length")
	cmd.Flags().StringVar(&opts.Title, "title", "", "run title")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "output format (table, csv, md, json)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the table to this file (.csv or .xlsx)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 25, "rows to print (0 for all)")

	return cmd
}

func runPredict(cmd *cobra.Command, opts *PredictOptions) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())
	defer Cleanup(cmd.Context())
	styles := DefaultStyles()

	sequence, err := resolveSequence(opts)
	if err != nil {
		return err
	}
	if len(opts.Alleles) == 0 {
		return fmt.Errorf("at least one allele is required")
	}

	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("%s %s run", opts.ToolGroup, opts.Method)
	}

	client := iedb.NewClient(cfg.APIBaseURL)
	req := iedb.NewBindingRequest(opts.ToolGroup, sequence, strings.Join(opts.Alleles, ","),
		opts.LengthMin, opts.LengthMax, opts.Method)
	req.PipelineTitle = title

	handle, err := client.Submit(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	fmt.Printf("Submitted %s (result %s), waiting...\n", styles.Header.Render(title), handle.ResultID)

	manager := job.NewManager(client, logger,
		job.WithPollInterval(time.Duration(cfg.PollInterval)*time.Second))
	defer manager.Shutdown()

	j := manager.Start(handle, job.Params{
		Title: title, SequenceText: sequence, Alleles: opts.Alleles, Method: opts.Method,
	})

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		store = nil
	} else {
		defer func() { _ = store.Close() }()
		recordRun(store, logger, j, handle, opts, len(sequence))
	}

	select {
	case <-j.Done():
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	snap := j.Snapshot()
	if store != nil {
		if err := store.CompleteRun(j.ID, string(snap.Phase), snap.ErrorMessage); err != nil {
			logger.Error("failed to record run outcome", "error", err)
		}
	}
	if snap.Phase == job.PhaseError {
		return fmt.Errorf("prediction failed: %s", snap.ErrorMessage)
	}

	rows := j.Rows()
	fmt.Printf("%s %d relevant peptides\n", styles.Success.Render("Done:"), len(rows))

	shown := rows
	if opts.Limit > 0 && len(rows) > opts.Limit {
		shown = rows[:opts.Limit]
	}
	if err := renderRows(cmd.OutOrStdout(), shown, opts.Format); err != nil {
		return err
	}
	if len(shown) < len(rows) {
		fmt.Printf("(showing %d of %d rows, use --limit 0 for all)\n", len(shown), len(rows))
	}

	if opts.Out != "" {
		if err := exportRows(opts.Out, j); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", opts.Out)
	}
	return nil
}

func resolveSequence(opts *PredictOptions) (string, error) {
	raw := opts.Sequence
	if opts.SequenceFile != "" {
		data, err := os.ReadFile(opts.SequenceFile)
		if err != nil {
			return "", fmt.Errorf("failed to read sequence file: %w", err)
		}
		raw = string(data)
	}

	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		b.WriteString(strings.ToUpper(line))
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("a sequence is required (--sequence or --sequence-file)")
	}
	return b.String(), nil
}

// recordRun writes the run into the history database, mirroring the web
// flow. History failures don't abort a prediction.
func recordRun(store state.Store, logger *slog.Logger, j *job.Job, handle iedb.JobHandle, opts *PredictOptions, seqLen int) {
	record := &state.RunRecord{
		ID:        j.ID,
		ResultID:  handle.ResultID,
		Title:     j.Title,
		ToolGroup: opts.ToolGroup,
		Method:    opts.Method,
		Alleles:   strings.Join(opts.Alleles, ","),
		SeqLength: seqLen,
		Status:    string(job.PhasePending),
	}
	if err := store.RecordRun(record); err != nil {
		logger.Error("failed to record run", "error", err)
	}
}

func exportRows(path string, j *job.Job) error {
	v := j.View()
	if v == nil {
		return fmt.Errorf("no results to export")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return exporttable.WriteXLSX(f, v.Rows())
	default:
		return exporttable.WriteCSV(f, v.Rows())
	}
}
