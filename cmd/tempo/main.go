package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dori/tempo/internal/api"
	"github.com/dori/tempo/internal/app"
	"github.com/dori/tempo/internal/config"
	"github.com/dori/tempo/internal/logging"
	"github.com/dori/tempo/internal/metrics"
	"github.com/dori/tempo/internal/ui"
	"github.com/dori/tempo/internal/ui/theme"
)

var version = "0.1.0"

var (
	// Global flags
	configPath string
	verbose    bool
	apiURL     string
	themeName  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "Timesheets and tasks from the terminal",
	Long: `tempo is a terminal client for the timesheet and task endpoints of the
operations backend.

Run without arguments to open the week grid and task board.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tempo v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/tempo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend base URL (overrides api.base_url)")
	rootCmd.Flags().StringVar(&themeName, "theme", "", "Theme name (nord, gruvbox)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(weekCmd, logCmd, rmCmd)
	rootCmd.AddCommand(taskCmd)
}

// loadConfig layers the command-line flags over config.Load
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if themeName != "" {
		cfg.Theme = themeName
	}
	return cfg, cfg.Validate()
}

// open builds the application; exclusive takes the single-instance lock
func open(exclusive bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger = logging.NewOrNop(cfg.LogPath(), cfg.LogLevel, verbose)
	return app.New(cfg, logger, app.Options{Exclusive: exclusive})
}

func runTUI(cmd *cobra.Command, args []string) error {
	application, err := open(true)
	if err != nil {
		return err
	}
	defer application.Close()

	if t, ok := theme.ByName(application.Config.Theme); ok {
		theme.SetTheme(t)
	} else {
		application.Log.Warn("unknown theme, using default", zap.String("theme", application.Config.Theme))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if addr := application.Config.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, application.Log); err != nil {
				application.Log.Error("metrics endpoint failed", zap.Error(err))
			}
		}()
	}

	p := tea.NewProgram(ui.NewRootModel(application), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// describe turns err into the line printed for the user
func describe(err error) string {
	var statusErr *api.StatusError
	switch {
	case errors.As(err, &statusErr),
		errors.Is(err, api.ErrUnauthenticated),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrTimeout),
		errors.Is(err, api.ErrNetwork):
		return api.Message(err)
	case errors.Is(err, app.ErrAlreadyRunning):
		return "tempo is already open in another terminal"
	}
	return err.Error()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}
