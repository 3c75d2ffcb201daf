package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/config"
	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/store/sqlite"
)

type rootOptions struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "payrollctl",
		Short:         "Operator tools for the payroll store",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (default PAYROLL_DB_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	cmd.AddCommand(
		newSeedCmd(opts),
		newRunCmd(opts),
		newPayslipsCmd(opts),
		newReportCmd(opts),
	)
	return cmd
}

// session is one opened store with services wired over it. Commands act as
// hr.SystemActor.
type session struct {
	store    *sqlite.Store
	services *api.Services
	actor    hr.Actor
	logger   *zap.Logger
}

func (o *rootOptions) open() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}

	logger := zap.NewNop()
	if o.verbose {
		cfg.LogDev = true
		if logger, err = cfg.Logger(); err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
	}

	store, err := sqlite.New(cfg.DBPath, logger.Named("store.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	audit := hr.NewAuditor(store, logger)
	return &session{
		store:    store,
		services: api.NewServices(store, audit, logger),
		actor:    hr.SystemActor,
		logger:   logger,
	}, nil
}

func (s *session) Close() error {
	_ = s.logger.Sync()
	return s.store.Close()
}
