package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/policyqa/internal/config"
	"github.com/jask/policyqa/internal/logging"
	"github.com/jask/policyqa/internal/stub"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		fixtures string
		logLevel string
		opts     stub.Options
	)
	cmd := &cobra.Command{
		Use:           "policyqa-stub",
		Short:         "Serve canned policy QA answers for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(cmd.ErrOrStderr(), logLevel)
			set, err := stub.LoadFixtures(fixtures)
			if err != nil {
				return err
			}
			s := stub.NewServer(set, opts, logger)
			srv := &http.Server{Addr: addr, Handler: s.Echo(), ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("stub.listen", "addr", addr, "fixtures", len(set.Fixtures), "require_upload", opts.RequireUpload)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	f.StringVar(&fixtures, "fixtures", "", "YAML fixture file (built-in set when empty)")
	f.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&opts.UploadPath, "upload-path", config.DefaultUploadPath, "upload route")
	f.StringVar(&opts.QueryPath, "query-path", config.DefaultQueryPath, "query route")
	f.BoolVar(&opts.RequireUpload, "require-upload", false, "reject queries until a PDF has been uploaded")
	f.Int64Var(&opts.MaxUploadBytes, "max-upload-bytes", 50<<20, "largest accepted upload")
	return cmd
}
