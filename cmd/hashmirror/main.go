package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hashmirror/hashmirror/internal/config"
	"github.com/hashmirror/hashmirror/internal/mirror"
	"github.com/hashmirror/hashmirror/internal/remote"
	"github.com/hashmirror/hashmirror/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "hashmirror",
	Short:         "Content-addressed sync and dedup against a cloud file store",
	Version:       version.Detailed(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "config file")
	rootCmd.PersistentFlags().String("data-dir", config.DefaultDataDir, "data directory (journal, lock)")
	rootCmd.PersistentFlags().Int("concurrency", mirror.DefaultConcurrency, "max in-flight remote calls")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")

	rootCmd.AddCommand(syncCmd, dedupCmd, snapshotCmd, resumeCmd)
}

func main() {
	// local overrides for credentials etc., ignored when absent
	_ = godotenv.Load()

	setupLogging(false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("error:"), err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	slog.SetDefault(slog.New(handler))
}

func bindConfig(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		path, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(path)
	} else {
		viper.AddConfigPath(config.DefaultDataDir)
		viper.SetConfigName("config")
		viper.SetConfigType("json")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("data_dir", cmd.Flags().Lookup("data-dir"))
	viper.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))

	viper.SetEnvPrefix("HASHMIRROR")
	viper.AutomaticEnv()

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		setupLogging(true)
	}

	return nil
}

// loadConfig materializes and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg := &config.Config{
		Path:        viper.ConfigFileUsed(),
		DataDir:     viper.GetString("data_dir"),
		Concurrency: viper.GetInt("concurrency"),
		Remote: remote.S3Config{
			Bucket:    viper.GetString("remote.bucket"),
			Region:    viper.GetString("remote.region"),
			AccessKey: viper.GetString("remote.access_key"),
			SecretKey: viper.GetString("remote.secret_key"),
			Endpoint:  viper.GetString("remote.endpoint"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(ctx context.Context, cfg *config.Config) (mirror.StorageClient, error) {
	return remote.NewS3Client(ctx, &cfg.Remote)
}

// reportSummary prints the final run summary and converts failures into a
// non-zero exit.
func reportSummary(summary *mirror.Summary) error {
	if summary.Ok() {
		fmt.Println(green(summary.String()))
		return nil
	}
	fmt.Println(summary.String())
	return fmt.Errorf("session %s finished with %d failed, %d pending entries",
		summary.SessionID, summary.Failed, summary.Pending)
}
