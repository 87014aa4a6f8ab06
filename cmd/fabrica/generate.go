package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TFMV/fabrica/config"
	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/gateway"
	"github.com/TFMV/fabrica/pkg/pipeline"
	"github.com/briandowns/spinner"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// GenerateOptions represents the options for the generate command.
type GenerateOptions struct {
	ConfigPath string
	DataDir    string
	Backend    string
	Seed       int64
	Today      string
	DeltaOnly  bool
	ReportPath string
}

// newGenerateCommand creates the generate command.
func newGenerateCommand() *cobra.Command {
	options := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Extend all datasets up to the current date",
		Long: `The generate command runs one synthesis pass: for every dataset it
computes the missing date range from its watermark, fabricates new rows that
reference valid customers, orders and products (including ones created earlier
in the same run), merges them into the existing snapshot without touching
historical rows, and persists the result.

Running generate twice in a row produces zero rows the second time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(options)
		},
	}

	cmd.Flags().StringVarP(&options.ConfigPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().StringVar(&options.DataDir, "data-dir", "", "Override the local data directory")
	cmd.Flags().StringVar(&options.Backend, "backend", "", "Override the storage backend (local, s3)")
	cmd.Flags().Int64Var(&options.Seed, "seed", 0, "Random seed (0 seeds from the current time)")
	cmd.Flags().StringVar(&options.Today, "date", "", "Generate up to this date instead of today (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&options.DeltaOnly, "delta", false, "Write only new rows to the delta channel")
	cmd.Flags().StringVar(&options.ReportPath, "report", "", "Write the JSON run report to this path")

	return cmd
}

// runGenerate executes one generation run with the given options.
func runGenerate(options *GenerateOptions) error {
	// Load AWS credentials and friends from .env when present.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyOverrides(cfg, options)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	today := time.Now().UTC()
	if options.Today != "" {
		today, err = time.Parse(core.DateLayout, options.Today)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	seed := cfg.Generation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nCancelling run...")
		cancel()
	}()

	gw, err := gateway.DefaultFactory.Create(ctx, cfg.GatewayConfig())
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	runner := pipeline.NewRunner(gw, cfg.Params(), pipeline.Options{
		OrdersWatermark: cfg.Generation.OrdersWatermark,
		DeltaOnly:       cfg.Storage.DeltaOnly,
		Seed:            seed,
		Backend:         cfg.Storage.Backend,
	})

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " generating datasets..."
	spin.Start()
	rep := runner.Run(ctx, today, rng)
	spin.Stop()

	rep.WriteSummary(os.Stdout)

	if path := reportPath(cfg, options); path != "" {
		if err := rep.SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("Run report written to %s\n", path)
	}

	if rep.Failed() {
		return fmt.Errorf("one or more datasets failed, see report")
	}
	return nil
}

// applyOverrides lets flags win over the config file.
func applyOverrides(cfg *config.Config, options *GenerateOptions) {
	if options.DataDir != "" {
		cfg.Storage.DataDir = options.DataDir
	}
	if options.Backend != "" {
		cfg.Storage.Backend = options.Backend
	}
	if options.Seed != 0 {
		cfg.Generation.Seed = options.Seed
	}
	if options.DeltaOnly {
		cfg.Storage.DeltaOnly = true
	}
}

func reportPath(cfg *config.Config, options *GenerateOptions) string {
	if options.ReportPath != "" {
		return options.ReportPath
	}
	return cfg.Report.Path
}
