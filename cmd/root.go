package cmd

import (
	"os"
	"strings"

	"github.com/chxlky/trello-quickcard/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const AppName = "quickcard"

var (
	configDir string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   AppName,
	Short: "Create Trello cards quickly",
	Long: `quickcard connects to Trello with an API key and token, lets you pick a
board and creates cards on it, falling back across several transports when
one of them is unavailable. It can also run the relay backend those
transports rely on for writes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(os.Getenv("LOG_LEVEL"))
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)

		var dirs []string
		if configDir != "" {
			dirs = append(dirs, configDir)
		}
		cfg, err = config.Load(dirs...)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.toml (defaults to the working directory)")
}

// newLogger builds the console logger. Logs go to stderr so command output on
// stdout stays clean.
func newLogger(levelStr string) (*zap.Logger, error) {
	levelStr = strings.ToLower(levelStr)
	if levelStr == "" {
		levelStr = "debug"
	}
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      true,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zc.Build()
}
