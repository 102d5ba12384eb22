package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/config"
	"github.com/jask/policyqa/internal/database"
	"github.com/jask/policyqa/internal/database/repository"
	"github.com/jask/policyqa/internal/logging"
	"github.com/jask/policyqa/internal/prefs"
	"github.com/jask/policyqa/internal/service"
	"github.com/jask/policyqa/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	file     string
	logLevel string
	noHist   bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:           "policyqa",
		Short:         "Ask questions about an insurance policy PDF",
		Long:          "policyqa uploads a policy PDF to the policy QA service and shows the decision, justification and policy clauses it returns for a query.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, flags)
		},
	}
	root.Flags().StringVarP(&flags.file, "file", "f", "", "preselect this PDF")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&flags.noHist, "no-history", false, "do not read or write the local query history")

	root.AddCommand(
		newUploadCmd(&flags),
		newAskCmd(&flags),
		newHistoryCmd(&flags),
		newConfigCmd(),
	)
	return root
}

// runtime is everything a command needs, built from config.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	db      *sql.DB
	client  *backend.Client
	query   *service.QueryService
	upload  *service.UploadService
	history *service.HistoryService
	maint   *service.MaintenanceService
	closers []io.Closer
}

// openRuntime loads config and wires services. logTo nil means the
// configured log file (interactive mode).
func openRuntime(flags *rootFlags, logTo io.Writer) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.noHist {
		cfg.History.Enabled = false
	}

	rt := &runtime{cfg: cfg}
	if logTo == nil {
		logger, closer, err := logging.OpenFile(cfg.Log)
		if err != nil {
			return nil, err
		}
		rt.logger = logger
		rt.closers = append(rt.closers, closer)
	} else {
		rt.logger = logging.New(logTo, cfg.Log.Level)
	}

	rt.client, err = backend.New(cfg.Backend, nil, rt.logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var queries *repository.QueryRepo
	var uploads *repository.UploadRepo
	if cfg.History.Enabled {
		db, err := database.OpenMigrated(cfg.History.Path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, db)
		queries = repository.NewQueryRepo(db)
		uploads = repository.NewUploadRepo(db)
		rt.history = &service.HistoryService{Queries: queries, UploadRepo: uploads}
		rt.maint = &service.MaintenanceService{DB: db}
	}
	rt.query = &service.QueryService{Backend: rt.client, Queries: queries, Logger: rt.logger}
	rt.upload = &service.UploadService{Backend: rt.client, Uploads: uploads, Logger: rt.logger}
	return rt, nil
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i].Close()
	}
	r.closers = nil
}

func runTUI(cmd *cobra.Command, flags rootFlags) error {
	rt, err := openRuntime(&flags, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	services := tui.Services{Query: rt.query, Upload: rt.upload}
	if rt.history != nil {
		services.History = rt.history
	}
	opts := tui.Options{PickerDir: rt.cfg.UI.PickerDir, File: flags.file}
	if path, err := prefs.DefaultPath(); err == nil {
		if state, err := prefs.Load(path); err == nil {
			opts.PickerDir = state.PickerDir(opts.PickerDir)
			opts.Recent = state.Recent
		} else {
			rt.logger.Warn("prefs.load_error", "path", path, "error", err)
		}
		rec := prefs.Recorder{Path: path, Max: 10}
		opts.Remember = func(file string) error {
			if err := rec.Record(file); err != nil {
				rt.logger.Warn("prefs.save_error", "path", path, "error", err)
				return err
			}
			return nil
		}
	}
	app := tui.New(cmd.Context(), services, opts)
	rt.logger.Info("tui.start", "backend", rt.cfg.Backend.BaseURL, "history", rt.cfg.History.Enabled)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}
