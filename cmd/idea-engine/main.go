// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the idea-engine CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/idea-engine/internal/logger"
	"github.com/pdiddy/idea-engine/internal/secrets"
	"github.com/pdiddy/idea-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// appConfig is the resolved configuration, set before any command runs.
	appConfig types.Config

	// log is the process logger, set before any command runs.
	log logrus.FieldLogger = logrus.StandardLogger()

	closeLog = func() error { return nil }
)

// rootCmd is the base command for the idea-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "idea-engine",
	Short: "Evaluate business ideas through an automated stage-gate pipeline",
	Long: `idea-engine moves submitted business ideas through five automated
evaluation stages: problem validation, market sizing, impact assessment,
feasibility and pitch deck generation. Each stage asks a reasoning provider
for a structured assessment, recomputes the score locally and either
advances the idea or holds it for human follow-up.

Ideas that clear every stage are marked ready for voting; export writes
the hand-off for the voting committee.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := secrets.LoadEnvFile(envFile); err != nil {
			return err
		}

		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		l, closeFn, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		log, closeLog = l, closeFn

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, log)
		if err != nil {
			return err
		}
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.WithField("keys", strings.Join(keys, ",")).Debug("secrets.loaded")
		}
		secrets.ApplyProviderKeys(&cfg.Reasoning, s)

		appConfig = cfg
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./idea-engine.yaml or ~/.config/idea-engine/idea-engine.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of API key files")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded into the environment")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides store.path)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("idea-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "idea-engine"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("IDEA_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
