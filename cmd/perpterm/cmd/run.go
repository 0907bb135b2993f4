package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/perpterm/api"
	"github.com/rustyeddy/perpterm/config"
	"github.com/rustyeddy/perpterm/journal"
	"github.com/rustyeddy/perpterm/market"
	"github.com/rustyeddy/perpterm/sim"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated terminal",
	Long: `Start the simulation engine and the snapshot API server.

Example:
  perpterm run --config terminal.yaml`,
	RunE: runTerminal,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to config file (defaults apply when omitted)")
}

func runTerminal(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := logrus.New()

	j, err := buildJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	settings, err := buildSettings(cfg)
	if err != nil {
		return err
	}

	opts := []sim.Option{sim.WithJournal(j), sim.WithLogger(log)}
	if cfg.Simulation.Seed != 0 {
		opts = append(opts, sim.WithRand(rand.New(rand.NewSource(cfg.Simulation.Seed))))
	}

	engine := sim.NewEngine(market.NewRegistry(buildInstruments(cfg)), settings, opts...)
	engine.Start()
	defer engine.Stop()

	server := api.NewServer(engine, log, cfg.Server.Addr)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func buildSettings(cfg *config.Config) (sim.Settings, error) {
	tick, err := cfg.Simulation.TickIntervalDuration()
	if err != nil {
		return sim.Settings{}, fmt.Errorf("tick interval: %w", err)
	}
	bar, err := cfg.Simulation.BarDurationDuration()
	if err != nil {
		return sim.Settings{}, fmt.Errorf("bar duration: %w", err)
	}
	return sim.Settings{
		TickInterval:   tick,
		BarDuration:    bar,
		HistoryDepth:   cfg.Simulation.HistoryDepth,
		BookDepth:      cfg.Simulation.BookDepth,
		InitialBalance: cfg.Account.Balance,
	}, nil
}

func buildInstruments(cfg *config.Config) []market.Instrument {
	if len(cfg.Instruments) == 0 {
		return market.DefaultInstruments()
	}
	out := make([]market.Instrument, len(cfg.Instruments))
	for i, in := range cfg.Instruments {
		out[i] = market.Instrument{
			Symbol:      in.Symbol,
			BasePrice:   in.BasePrice,
			MaxLeverage: in.MaxLeverage,
			TickSize:    in.TickSize,
		}
	}
	return out
}

func buildJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.FillsFile, cfg.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Noop{}, nil
	}
}
