package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tigerroll/taxiweather/internal/app"
	etlconfig "github.com/tigerroll/taxiweather/internal/config"
	config "github.com/tigerroll/taxiweather/pkg/batch/core/config"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFile    string
	dbAdapters string
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (g *globalFlags) options(embedded []byte, overrides ...func(*config.Config)) app.Options {
	var adapters []string
	for _, name := range strings.Split(g.dbAdapters, ",") {
		if name = strings.TrimSpace(name); name != "" {
			adapters = append(adapters, name)
		}
	}
	return app.Options{
		EmbeddedConfig: config.EmbeddedConfig(embedded),
		EnvFilePath:    g.envFile,
		DBAdapters:     adapters,
		Overrides:      overrides,
	}
}

// setStepProperty returns an override that sets one property of a job step.
func setStepProperty(step, key string, value interface{}) func(*config.Config) {
	return func(cfg *config.Config) {
		if cfg.App.Job.Steps == nil {
			cfg.App.Job.Steps = map[string]map[string]interface{}{}
		}
		if cfg.App.Job.Steps[step] == nil {
			cfg.App.Job.Steps[step] = map[string]interface{}{}
		}
		cfg.App.Job.Steps[step][key] = value
	}
}

func newRootCommand(embedded []byte) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "taxiweather",
		Short: "NYC taxi trips joined with daily weather",
		Long: `taxiweather loads NYC yellow-taxi trip files and a daily weather CSV,
aggregates the trips by date, hour and payment type, joins them with the weather
and stores the result in the taxi_trips table. A dashboard serves charts over it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.envFile, "env-file", "e", envOr("ENV_FILE_PATH", ".env"), "path of the .env file loaded before the environment")
	root.PersistentFlags().StringVar(&flags.dbAdapters, "db-adapters", os.Getenv("DB_ADAPTORS"), "comma-separated database dialects to register (default sqlite,postgres,mysql)")

	root.AddCommand(
		newETLCommand(flags, embedded),
		newDashboardCommand(flags, embedded),
		newInspectCommand(flags, embedded),
	)
	return root
}

func newETLCommand(flags *globalFlags, embedded []byte) *cobra.Command {
	var (
		tripsDir    string
		weatherPath string
		export      bool
	)
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Load the input files and rebuild taxi_trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []func(*config.Config)
			if cmd.Flags().Changed("trips-dir") {
				overrides = append(overrides, setStepProperty(etlconfig.StepLoadTrips, "dir", tripsDir))
			}
			if cmd.Flags().Changed("weather") {
				overrides = append(overrides, setStepProperty(etlconfig.StepLoadWeather, "path", weatherPath))
			}
			if cmd.Flags().Changed("export") {
				overrides = append(overrides, setStepProperty(etlconfig.StepExport, "enabled", export))
			}
			return app.RunETL(cmd.Context(), flags.options(embedded, overrides...))
		},
	}
	cmd.Flags().StringVar(&tripsDir, "trips-dir", "", "directory of trip parquet files, relative to the input storage")
	cmd.Flags().StringVar(&weatherPath, "weather", "", "weather CSV path, relative to the input storage")
	cmd.Flags().BoolVar(&export, "export", false, "export taxi_trips to parquet after persisting")
	return cmd
}

func newDashboardCommand(flags *globalFlags, embedded []byte) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Serve the dashboard over taxi_trips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []func(*config.Config)
			if cmd.Flags().Changed("addr") {
				overrides = append(overrides, func(cfg *config.Config) { cfg.App.Dashboard.Addr = addr })
			}
			return app.RunDashboard(cmd.Context(), flags.options(embedded, overrides...))
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address, e.g. :8050")
	return cmd
}

func newInspectCommand(flags *globalFlags, embedded []byte) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Summarise taxi_trips and the last ETL run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Inspect(cmd.Context(), flags.options(embedded))
			if err != nil {
				return err
			}
			return app.WriteReport(cmd.OutOrStdout(), report)
		},
	}
}
