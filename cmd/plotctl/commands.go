package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	plotapp "github.com/landplots/backend/internal/application/plot"
	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/sheets"
)

// env is shared by every subcommand; PersistentPreRunE fills it
type env struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	log     *zap.Logger
	gateway *sheets.Gateway
	plots   *plotapp.PlotService
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:          "plotctl",
		Short:        "Operate the land plot spreadsheet",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e.log != nil {
				_ = logger.Sync(e.log)
			}
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default: config.toml in ., ./config or /app)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		e.testCmd(),
		e.initCmd(),
		e.dashboardCmd(),
		e.exportCmd(),
		e.seedCmd(),
	)
	return root
}

func (e *env) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadFile(e.configPath)
	if err != nil {
		return err
	}
	log, err := logger.NewForEnvironment(cfg.App.Env, e.logLevel)
	if err != nil {
		return err
	}
	gw, err := sheets.NewGatewayFromConfig(cmd.Context(), sheets.FromConfig(cfg.Sheets), nil, log.Named("sheets"))
	if err != nil {
		return err
	}
	if !gw.Configured() {
		return errors.New("sheets.web_app_url is not set")
	}

	e.cfg = cfg
	e.log = log
	e.gateway = gw
	e.plots = plotapp.NewPlotService(gw,
		plotapp.WithLogger(log.Named("plots")),
		plotapp.WithBatchDelay(cfg.Sheets.BatchDelay),
		plotapp.WithSheetsEnabled(true),
	)
	return nil
}

func (e *env) testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the Apps Script web app answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := e.plots.TestConnection(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("web app answered without success")
			}
			cmd.Println("connected")
			return nil
		},
	}
}

func (e *env) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the Plots, Payments and Customers sheets with their headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.gateway.InitializeSheets(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("sheets initialized")
			return nil
		},
	}
}

func (e *env) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Print the dashboard figures of the spreadsheet as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := e.plots.Pull(cmd.Context()); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), e.plots.DashboardStats())
		},
	}
}

func (e *env) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every plot of the spreadsheet as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unsupported format %q", format)
			}
			if format == "xlsx" && out == "" {
				return errors.New("--out is required for xlsx")
			}
			if _, err := e.plots.Pull(cmd.Context()); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if format == "xlsx" {
				return e.plots.ExportXLSX(w)
			}
			_, err := io.WriteString(w, e.plots.ExportCSV()+"\n")
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func (e *env) seedCmd() *cobra.Command {
	var sample, push bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate the full plot layout and optionally push it to the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			res, err := e.plots.RegenerateAll(ctx, sample, false)
			if err != nil {
				return err
			}
			out := map[string]any{"summary": res.Summary}
			if push {
				batch, err := e.plots.SyncAll(ctx)
				if err != nil {
					return err
				}
				out["push"] = batch
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "mark sample plots as sold")
	cmd.Flags().BoolVar(&push, "push", false, "push the generated plots to the spreadsheet")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
