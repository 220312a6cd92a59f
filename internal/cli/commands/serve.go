package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoBrowser bool
	Watch     bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the BindScope web server",
		Long: `Start a local web server for submitting binding predictions and
exploring results interactively.`,
		Example: `  # Start on the default port
  bindscope serve

  # Custom port, no browser
  bindscope serve --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "don't auto-open the browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "reload allele catalogs on change")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := GetConfig(cmd.Context())
	logger := GetLogger(cmd.Context())
	defer Cleanup(cmd.Context())

	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer func() { _ = store.Close() }()

	catalog, err := alleles.NewCatalog(logger)
	if err != nil {
		return err
	}
	if cfg.CatalogDir != "" {
		if err := catalog.LoadDir(cfg.CatalogDir); err != nil {
			return err
		}
	}

	client := iedb.NewClient(cfg.APIBaseURL)
	manager := job.NewManager(client, logger,
		job.WithPollInterval(time.Duration(cfg.PollInterval)*time.Second))

	watch := cfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	server := ui.NewServer(ui.Config{
		Client:        client,
		Manager:       manager,
		Store:         store,
		Catalog:       catalog,
		Port:          cfg.Port,
		CatalogDir:    cfg.CatalogDir,
		Watch:         watch,
		SessionSecret: sessionSecret(cfg.SessionSecret),
		Logger:        logger,
	})

	if !opts.NoBrowser {
		go openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting BindScope on http://localhost:%d\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")
	return server.Serve(ctx)
}

// sessionSecret returns the configured secret, or a random per-process
// one. A random secret invalidates sessions across restarts, which is
// acceptable for a local tool.
func sessionSecret(configured string) string {
	if configured != "" {
		return configured
	}
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}
	_ = cmd.Start()
}
