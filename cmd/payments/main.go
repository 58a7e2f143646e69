package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MarkoPoloResearchLab/payments/internal/obs"
)

const (
	flagQueueDepth     = "queue-depth"
	flagLogLevel       = "log-level"
	flagRetainDisputes = "retain-disputes"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"

	configKeyQueueDepth     = "queue_depth"
	configKeyLogLevel       = "log_level"
	configKeyRetainDisputes = "retain_disputes"
	configKeyListenAddr     = "listen_addr"
	configKeyAllowedOrigins = "allowed_origins"

	defaultQueueDepth = 100
	defaultLogLevel   = "info"
	defaultListenAddr = ":8080"
)

type runtimeConfig struct {
	QueueDepth     int
	LogLevel       string
	RetainDisputes bool
	ListenAddr     string
	AllowedOrigins []string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "payments: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "payments <transactions.csv>",
		Short:         "Process a transaction feed and print the ledger snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := obs.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			obs.Init()

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open feed: %w", err)
			}
			defer file.Close()

			return runProcess(cfg, file, os.Stdout, logger)
		},
	}

	addSharedFlags(cmd)
	cmd.AddCommand(newServeCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Accept transactions over HTTP instead of a file feed",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger, err := obs.NewLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			obs.Init()

			return runServe(ctx, cfg, logger)
		},
	}

	addSharedFlags(cmd)
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().StringSlice(flagAllowedOrigins, nil, "allowed CORS origins")
	return cmd
}

func addSharedFlags(cmd *cobra.Command) {
	cmd.Flags().Int(flagQueueDepth, defaultQueueDepth, "ingestion queue capacity")
	cmd.Flags().String(flagLogLevel, defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().Bool(flagRetainDisputes, false,
		"keep dispute ids after resolve/chargeback (historical behavior)")
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	bindings := map[string]string{
		configKeyQueueDepth:     "PAYMENTS_QUEUE_DEPTH",
		configKeyLogLevel:       "PAYMENTS_LOG_LEVEL",
		configKeyRetainDisputes: "PAYMENTS_RETAIN_DISPUTES",
		configKeyListenAddr:     "PAYMENTS_LISTEN_ADDR",
		configKeyAllowedOrigins: "PAYMENTS_ALLOWED_ORIGINS",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return err
		}
	}

	flagsByKey := map[string]string{
		configKeyQueueDepth:     flagQueueDepth,
		configKeyLogLevel:       flagLogLevel,
		configKeyRetainDisputes: flagRetainDisputes,
		configKeyListenAddr:     flagListenAddr,
		configKeyAllowedOrigins: flagAllowedOrigins,
	}
	for key, name := range flagsByKey {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return err
		}
	}

	cfg.QueueDepth = viper.GetInt(configKeyQueueDepth)
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = defaultQueueDepth
	}
	cfg.LogLevel = viper.GetString(configKeyLogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.RetainDisputes = viper.GetBool(configKeyRetainDisputes)
	cfg.ListenAddr = viper.GetString(configKeyListenAddr)
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	cfg.AllowedOrigins = viper.GetStringSlice(configKeyAllowedOrigins)
	return nil
}
