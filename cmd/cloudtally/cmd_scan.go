package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/cloudtally/cloudtally/broker"
	"github.com/cloudtally/cloudtally/config"
	"github.com/cloudtally/cloudtally/journal"
	"github.com/cloudtally/cloudtally/orchestrator"
	awsprovider "github.com/cloudtally/cloudtally/providers/aws"
	"github.com/cloudtally/cloudtally/sink"
	"github.com/cloudtally/cloudtally/storage"
	"github.com/cloudtally/cloudtally/telemetry"
	"github.com/cloudtally/cloudtally/types"
)

var (
	scanConfig      string
	scanOutput      string
	scanRegions     string
	scanServices    string
	scanAccounts    string
	scanExternalID  string
	scanWorkers     int
	scanMetricsAddr string
	scanDebug       bool
	scanNoStore     bool
	scanJournalDir  string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory resources across accounts and regions",
	Long: `Inventory cloud resources across every configured account.

For each account, cloudtally assumes the delegated role once, then lists
each enabled service in each region in parallel. Global services are
listed once per account. Results are grouped by service and written as
one worksheet per group.`,
	Example: `  cloudtally scan                                     # Use config file defaults
  cloudtally scan --services ec2,s3                   # Only these services
  cloudtally scan --regions us-east-1,eu-west-1       # Override regions
  cloudtally scan --accounts "111111111111:arn:aws:iam::111111111111:role/inventory"
  cloudtally scan --output /tmp/inventory.xlsx        # Workbook destination`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanConfig, "config", "c", "", "Path to YAML config file")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "inventory.xlsx", "Workbook output path")
	scanCmd.Flags().StringVarP(&scanRegions, "regions", "r", "", "Comma-separated regions to inventory")
	scanCmd.Flags().StringVarP(&scanServices, "services", "s", "", "Comma-separated services (ec2,rds,s3,workspaces)")
	scanCmd.Flags().StringVarP(&scanAccounts, "accounts", "a", "", "Accounts as id:role-arn pairs, comma-separated")
	scanCmd.Flags().StringVar(&scanExternalID, "external-id", "", "External ID for cross-account delegation")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "Concurrent collection units (default from config)")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics", "", "Metrics server address (e.g. :9090), disabled when empty")
	scanCmd.Flags().BoolVar(&scanDebug, "debug", false, "Enable debug logging")
	scanCmd.Flags().BoolVar(&scanNoStore, "no-store", false, "Skip writing run history")
	scanCmd.Flags().StringVar(&scanJournalDir, "journal-dir", "", "Directory for the audit journal, disabled when empty")
}

func runScan(cmd *cobra.Command, args []string) error {
	setupLogging(scanDebug)

	cfg, err := loadScanConfig(cmd.Flags().Changed("output"))
	if err != nil {
		return err
	}

	services := enabledServices(cfg.Services)
	if len(services) == 0 {
		return &types.ConfigurationError{Reason: "no supported services enabled"}
	}

	targets, err := cfg.AccountTargets()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if scanMetricsAddr != "" {
		startMetricsServer(scanMetricsAddr)
	}
	metrics, err := initMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("metrics disabled")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DefaultRegion))
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	orch := orchestrator.New(broker.New(awsCfg), collectorFactory{awsprovider.NewFactory()}, orchestrator.Options{
		Workers: cfg.Workers,
	}).WithMetrics(metrics)

	if scanJournalDir != "" {
		j, err := journal.Open(scanJournalDir)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer j.Close()
		orch = orch.WithJournal(j)
	}

	log.Info().
		Int("accounts", len(targets)).
		Strs("regions", cfg.Regions).
		Strs("services", services).
		Msg("cloudtally starting")

	started := time.Now()
	results, err := orch.Run(ctx, targets, cfg.Regions, services)
	if err != nil {
		return err
	}
	completed := time.Now()

	summary := orchestrator.Summarize(results)
	logSummary(summary)

	records := orchestrator.Flatten(results)
	if len(records) == 0 {
		log.Warn().Msg("no resources collected, skipping workbook")
	} else {
		partitions := sink.NewPartitioner().Partitions(records)
		if err := sink.NewExcelSink(cfg.Output.Path).Write(ctx, partitions); err != nil {
			return err
		}
	}

	if !scanNoStore && cfg.Output.StorePath != "" {
		if err := saveRun(cfg.Output.StorePath, started, completed, summary, results); err != nil {
			log.Warn().Err(err).Msg("run history not saved")
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d units failed", summary.Failed, summary.Units)
	}
	return nil
}

// collectorFactory adapts the provider factory to the orchestrator contract.
type collectorFactory struct {
	*awsprovider.Factory
}

func (f collectorFactory) New(service string, cred types.DelegatedCredential, region, accountID string) (orchestrator.Collector, error) {
	return f.Factory.New(service, cred, region, accountID)
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// loadScanConfig loads the config file (or defaults) and layers flag
// overrides on top. The output flag carries a default value, so it only
// overrides the config file when set on the command line.
func loadScanConfig(outputSet bool) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if scanConfig != "" {
		cfg, err = config.Load(scanConfig)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if scanRegions != "" {
		cfg.Regions = splitList(scanRegions)
	}
	if scanServices != "" {
		cfg.Services = splitList(scanServices)
	}
	if scanAccounts != "" {
		cfg.AccountsSpec = scanAccounts
		cfg.Accounts = nil
	}
	if scanExternalID != "" {
		cfg.ExternalID = scanExternalID
	}
	if scanWorkers > 0 {
		cfg.Workers = scanWorkers
	}
	if outputSet || cfg.Output.Path == "" {
		cfg.Output.Path = scanOutput
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// enabledServices drops services without a collector, warning per drop.
func enabledServices(requested []string) []string {
	var services []string
	for _, service := range requested {
		if !awsprovider.IsSupported(service) {
			log.Warn().Str("service", service).Msg("service not supported, skipping")
			continue
		}
		services = append(services, service)
	}
	return services
}

func initMetrics() (*telemetry.CollectionMetrics, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter)))
	return telemetry.NewCollectionMetrics()
}

func startMetricsServer(addr string) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", addr).Msg("starting metrics server")
		if err := http.ListenAndServe(addr, nil); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
}

func logSummary(summary types.RunSummary) {
	event := log.Info().
		Int("total_resources", summary.TotalResources).
		Int("units", summary.Units).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed)
	for accountID, account := range summary.Accounts {
		event = event.Int("account_"+accountID, account.Resources)
	}
	event.Msg("inventory complete")
}

func saveRun(path string, started, completed time.Time, summary types.RunSummary, results []types.CollectionResult) error {
	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveRun(storage.RunRecord{
		StartedAt:   started,
		CompletedAt: completed,
		Summary:     summary,
		Units:       storage.OutcomesFrom(results),
	})
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
