package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/webscan/internal/application"
)

var (
	cfgFile string
	verbose bool
	dataDir string
)

var rootCmd = &cobra.Command{
	Use:           "webscan",
	Short:         "Probe web origins for baseline security signals and keep a scan history",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger := l.Sugar()

		configured := dataDir
		if !cmd.Flags().Changed("data-dir") {
			configured = viper.GetString("data_dir")
		}
		resolved, err := resolveDataDir(configured)
		if err != nil {
			return err
		}

		applyConfigDefaults(cmd.Flags())

		logger.Debugw("configuration loaded",
			"data_dir", resolved,
			"history_backend", cliConfig.History.Backend,
			"config_file", viper.ConfigFileUsed(),
		)

		storeAppContext(cmd, &AppContext{
			Logger:  logger,
			DataDir: resolved,
			Config:  cliConfig,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".webscan")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("WEBSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// newLogger builds a development logger in verbose mode and a quiet production logger otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction(zap.IncreaseLevel(zap.WarnLevel))
}

// newServices builds the application container for the running command.
func newServices(cmd *cobra.Command) (*application.Container, error) {
	appCtx := getAppContext(cmd)
	if appCtx == nil {
		return nil, fmt.Errorf("application context not initialized")
	}
	return application.NewContainer(cmd.Context(), appCtx.Config.containerConfig(appCtx.DataDir), appCtx.zapLogger())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.webscan.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for history and telemetry (default: platform data dir)")
	rootCmd.PersistentFlags().StringVar(&cliConfig.History.Backend, "history-backend", cliConfig.History.Backend, "history backend: csv, sqlite, postgres or memory")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
