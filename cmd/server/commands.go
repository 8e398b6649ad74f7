package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/rdesk/internal/api/client"
	"github.com/GriffinCanCode/rdesk/internal/api/middleware"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/rdesk/internal/infrastructure/server"
	"github.com/GriffinCanCode/rdesk/internal/theme"
)

// options mirrors the command-line flags; only flags the user set override
// the environment
type options struct {
	port        string
	host        string
	width       int
	height      int
	fps         int
	theme       string
	themeDir    string
	displayMode string
	logLevel    string
	dev         bool
	demo        bool
	noGraphics  bool
	noClipboard bool
}

func newRootCmd() *cobra.Command {
	var opts *options
	rootCmd := &cobra.Command{
		Use:           "rdesk",
		Short:         "rdesk - shared remote desktop server",
		Long:          `rdesk composes a shared virtual desktop and streams it to remote viewers over WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.Flags(), opts)
		},
	}
	opts = bindFlags(rootCmd.Flags())
	rootCmd.AddCommand(newVersionCmd(), newThemeCmd(), newStatusCmd(), newHashPasswordCmd())
	return rootCmd
}

func bindFlags(fs *pflag.FlagSet) *options {
	opts := &options{}
	fs.StringVar(&opts.port, "port", "", "listen port")
	fs.StringVar(&opts.host, "host", "", "listen host")
	fs.IntVar(&opts.width, "width", 0, "desktop width in pixels")
	fs.IntVar(&opts.height, "height", 0, "desktop height in pixels")
	fs.IntVar(&opts.fps, "fps", 0, "frames composed per second")
	fs.StringVar(&opts.theme, "theme", "", "built-in theme name or theme file path")
	fs.StringVar(&opts.themeDir, "theme-dir", "", "directory of theme files that shadow the built-ins")
	fs.StringVar(&opts.displayMode, "display-mode", "", "monitor layout mode: legacy, autodetect or optimize")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&opts.dev, "dev", false, "development logging")
	fs.BoolVar(&opts.demo, "demo", false, "open the test pattern window")
	fs.BoolVar(&opts.noGraphics, "no-graphics", false, "never offer accelerated graphics")
	fs.BoolVar(&opts.noClipboard, "no-clipboard", false, "disable clipboard sharing")
	return opts
}

// applyFlags overrides cfg with the flags that were set explicitly
func applyFlags(fs *pflag.FlagSet, opts *options, cfg *config.Config) {
	if fs.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if fs.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if fs.Changed("width") {
		cfg.Desktop.Width = opts.width
	}
	if fs.Changed("height") {
		cfg.Desktop.Height = opts.height
	}
	if fs.Changed("fps") {
		cfg.Desktop.FrameRate = opts.fps
	}
	if fs.Changed("theme") {
		cfg.Desktop.Theme = opts.theme
	}
	if fs.Changed("theme-dir") {
		cfg.Desktop.ThemeDir = opts.themeDir
	}
	if fs.Changed("display-mode") {
		cfg.Session.DisplayMode = opts.displayMode
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if fs.Changed("dev") {
		cfg.Logging.Development = opts.dev
	}
	if fs.Changed("demo") {
		cfg.Desktop.Demo = opts.demo
	}
	if fs.Changed("no-graphics") {
		cfg.Session.Graphics = !opts.noGraphics
	}
	if fs.Changed("no-clipboard") {
		cfg.Session.Clipboard = !opts.noClipboard
	}
}

func loadConfig(fs *pflag.FlagSet, opts *options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(fs, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, fs *pflag.FlagSet, opts *options) error {
	cfg, err := loadConfig(fs, opts)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Starting rdesk",
		zap.String("version", server.Version),
		zap.String("addr", cfg.Address()),
		zap.Int("width", cfg.Desktop.Width),
		zap.Int("height", cfg.Desktop.Height),
		zap.Int("fps", cfg.Desktop.FrameRate),
	)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}
	defer srv.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rdesk %s\n", server.Version)
		},
	}
}

func newThemeCmd() *cobra.Command {
	themeCmd := &cobra.Command{
		Use:   "theme",
		Short: "Inspect desktop themes",
	}

	var dir string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in themes and those found in --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range theme.Builtins() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			if dir == "" {
				return nil
			}
			found, err := theme.Discover(dir)
			if err != nil {
				return err
			}
			names := slices.Sorted(maps.Keys(found))
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", name, dir)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&dir, "dir", "", "theme directory to scan")
	themeCmd.AddCommand(listCmd)

	themeCmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a YAML or TOML theme file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := theme.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (title %dpx, border %dpx)\n", t.Name, t.TitleHeight, t.BorderWidth)
			return nil
		},
	})

	return themeCmd
}

func newStatusCmd() *cobra.Command {
	cfg := client.DefaultConfig()
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(cfg)
			out := cmd.OutOrStdout()

			h, err := c.Health(cmd.Context())
			if err != nil && !errors.Is(err, client.ErrUnhealthy) {
				return err
			}
			fmt.Fprintf(out, "Health:   %s\n", h.Status)
			if err != nil {
				return err
			}

			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			d := st.Desktop
			fmt.Fprintf(out, "Version:  %s\n", st.Version)
			fmt.Fprintf(out, "Desktop:  %dx%d theme=%s windows=%d frame=%d\n", d.Width, d.Height, d.Theme, d.Windows, d.Frame)
			fmt.Fprintf(out, "Timing:   mean=%.2fms p95=%.2fms budget=%.2fms\n", d.Timing.Mean, d.Timing.P95, d.Timing.Budget)
			for _, m := range d.Monitors {
				fmt.Fprintf(out, "Monitor:  #%d %s -> %s primary=%t\n", m.Index, m.Local, m.Remote, m.Primary)
			}
			fmt.Fprintf(out, "Peers:    %d\n", len(d.Peers))
			for _, p := range d.Peers {
				fmt.Fprintf(out, "  %s %s mode=%s scheme=%s depth=%d outstanding=%d\n",
					p.ID, p.State, p.Mode, p.Scheme, p.ColorDepth, p.Outstanding)
			}
			return nil
		},
	}
	fs := statusCmd.Flags()
	fs.StringVar(&cfg.BaseURL, "addr", cfg.BaseURL, "server base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "retries on connection errors")
	return statusCmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the RDESK_SERVER_PASSWORD_HASH value for a viewer password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := middleware.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
