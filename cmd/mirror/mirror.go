package mirror

import (
	"os"
	"os/signal"
	"syscall"

	"snow-mirror/internal/config"
	"snow-mirror/internal/core"
	"snow-mirror/internal/registry"
	"snow-mirror/pkg/log"

	"github.com/spf13/cobra"
)

var forceFull bool

var MirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror ServiceNow tables into the local Postgres cache",
	Long:  `Mirror ServiceNow tables into the local Postgres cache with various execution modes.`,
}

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run the mirror until it is stopped",
	Long:    `Perform a full synchronization and then keep refreshing the cache with delta passes.`,
	Example: `snow-mirror mirror run --config /path/to/config.yaml`,
	Run:     runForever,
}

var onceCmd = &cobra.Command{
	Use:     "once",
	Short:   "Run one synchronization pass and exit",
	Long:    `Perform a single synchronization pass and exit. Tables with a stored watermark get a delta pass unless --full is set.`,
	Example: `snow-mirror mirror once --full --config /path/to/config.yaml`,
	Run:     runOnce,
}

var targetsCmd = &cobra.Command{
	Use:     "targets",
	Short:   "Show which tables would be mirrored",
	Long:    `List every registered table together with whether the configured sync rule mirrors or skips it, without touching ServiceNow or Postgres.`,
	Example: `snow-mirror mirror targets --config /path/to/config.yaml`,
	Run:     runTargets,
}

func init() {
	onceCmd.Flags().BoolVar(&forceFull, "full", false, "force a full synchronization even for tables with a watermark")

	MirrorCmd.AddCommand(runCmd)
	MirrorCmd.AddCommand(onceCmd)
	MirrorCmd.AddCommand(targetsCmd)
}

func runForever(cmd *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "mirror-run").Logger()
	logger.Info().Msg("Starting snow-mirror")

	appConfig, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)

	wiring := core.NewWiring(appConfig)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := wiring.InitStatusReporter()
	orchestrator := wiring.InitOrchestrator(reporter)
	orchestrator.RunForever(ctx)

	logger.Info().Msg("snow-mirror stopped")
}

func runOnce(cmd *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "mirror-once").Logger()
	logger.Info().Msg("Starting one-time synchronization")

	appConfig, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)

	wiring := core.NewWiring(appConfig)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := wiring.InitStatusReporter()
	orchestrator := wiring.InitOrchestrator(reporter)
	orchestrator.RunOnce(ctx, forceFull)

	logger.Info().Msg("One-time synchronization completed")
}

func runTargets(_ *cobra.Command, _ []string) {
	logger := log.Logger.With().Str("component", "mirror-targets").Logger()

	appConfig, err := config.NewConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)

	wiring := core.NewWiring(appConfig)
	filter := wiring.InitTableFilter()
	mirrored, skipped := filter.Partition(registry.Targets())

	for _, target := range mirrored {
		logger.Info().Str("table", target.Table).Str("category", target.Category).Msgf("MIRROR: %s", target.Label)
	}
	for _, target := range skipped {
		logger.Info().Str("table", target.Table).Str("category", target.Category).Msgf("SKIP:   %s", target.Label)
	}

	logger.Info().
		Int("mirrored", len(mirrored)).
		Int("skipped", len(skipped)).
		Int("total", len(mirrored)+len(skipped)).
		Msg("Target listing completed")
}
