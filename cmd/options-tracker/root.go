package main

import (
	"cmp"
	"context"
	"fmt"

	"github.com/STTM-NSU/options-tracker/internal/config"
	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/STTM-NSU/options-tracker/internal/pipeline"
	"github.com/STTM-NSU/options-tracker/internal/robinhood"
	"github.com/STTM-NSU/options-tracker/internal/store"
	"github.com/STTM-NSU/options-tracker/internal/tda"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	_trackerCfgFilePath = "./configs/tracker.yaml"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "options-tracker",
		Short: "Track Robinhood option positions with TD Ameritrade quotes",
		Long: `options-tracker logs into Robinhood, fetches accounts, orders and open option
legs, prices every leg with a TD Ameritrade quote and computes position Greeks,
cost basis, gain/loss and net liquidation value.

Credentials are read from the environment (or a .env file):
ROBINHOOD_USERNAME, ROBINHOOD_PASSWORD, ROBINHOOD_MFA_CODE, TDA_API_KEY.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", _trackerCfgFilePath, "path to tracker config")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "overrides logging.level from config")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newSyncCmd(opts))

	return rootCmd
}

// app holds everything a command needs, built from config and env.
type app struct {
	cfg      config.TrackerConfig
	logger   logger.Logger
	store    *store.Store
	pipeline *pipeline.Pipeline

	closers []func()
}

func newApp(opts *rootOptions) (*app, error) {
	// A missing .env is only reported once the logger exists.
	envErr := godotenv.Load()

	cfg, err := config.LoadTrackerConfig(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: can't load tracker cfg", err)
	}

	level := logger.ParseLevel(cmp.Or(opts.logLevel, cfg.Logging.Level))
	zapLogger, loggerSync, err := logger.NewZapLoggerWithFile(level, cfg.Logging.File)
	if err != nil {
		return nil, fmt.Errorf("%w: can't init logger", err)
	}
	a := &app{cfg: cfg, logger: zapLogger, closers: []func(){loggerSync}}

	if envErr != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%w: can't load robinhood credentials", err)
	}
	cfg.Quotes.APIKey, err = config.LoadQuotesAPIKey()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%w: can't load quotes api key", err)
	}

	rh := robinhood.NewClient(cfg.Broker, creds, zapLogger.With("component", "robinhood"))
	quotes := tda.NewQuoteService(cfg.Quotes, zapLogger.With("component", "tda"))
	a.closers = append(a.closers, func() {
		if err := quotes.Close(); err != nil {
			zapLogger.Warnf("%s: can't close quotes client", err)
		}
		if err := rh.Close(); err != nil {
			zapLogger.Warnf("%s: can't close robinhood client", err)
		}
	})

	broker := pipeline.BrokerFunc(func(ctx context.Context) (pipeline.BrokerSession, error) {
		session, err := rh.Login(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	a.store = store.New()
	a.pipeline = pipeline.NewPipeline(broker, quotes, a.store, zapLogger.With("component", "pipeline"))

	return a, nil
}

// close runs closers in reverse, the logger is synced last.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
