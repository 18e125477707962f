// Command clariox-tui is a terminal editor for Clariox posts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clariox/internal/editor/autosave"
	"clariox/internal/editor/client"
	"clariox/internal/prefs"
	"clariox/internal/tui"
	"clariox/pkg/logger"
)

var (
	apiURL    string
	prefsPath string
	debounce  time.Duration
	logFile   string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "clariox-tui",
	Short:         "Write and auto-save Clariox posts from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEditor,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := prefs.Load(prefsPath)
		if err != nil {
			return err
		}
		p.Token = ""
		if err := prefs.Save(prefsPath, p); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefsPath, "prefs", prefs.DefaultPath(), "Preferences file")
	rootCmd.Flags().StringVar(&apiURL, "api", "", "API base URL (default: from preferences)")
	rootCmd.Flags().DurationVar(&debounce, "debounce", autosave.DefaultDebounce, "Quiet period before an edit is saved")
	rootCmd.Flags().StringVar(&logFile, "log", "", "Write logs to this file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	rootCmd.AddCommand(logoutCmd)
}

func runEditor(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := prefs.Load(prefsPath)
	if err != nil {
		return err
	}
	if apiURL != "" {
		p.APIURL = apiURL
	}

	c, err := client.New(p.APIURL, client.WithToken(p.Token))
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return tui.Run(tui.Options{
		Context:   ctx,
		Client:    c,
		Prefs:     p,
		PrefsPath: prefsPath,
		AutoSave:  []autosave.Option{autosave.WithDebounce(debounce)},
		Logger:    log,
	})
}

// newLogger logs to a file only; the terminal belongs to the editor.
func newLogger() (*zap.Logger, error) {
	if logFile == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(logger.ParseLevel(logLevel))
	cfg.OutputPaths = []string{logFile}
	cfg.ErrorOutputPaths = []string{logFile}
	return cfg.Build()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
