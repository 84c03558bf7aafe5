package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nstehr/ego/agent"
	"github.com/nstehr/ego/audit"
	"github.com/nstehr/ego/config"
	"github.com/nstehr/ego/engine"
	"github.com/nstehr/ego/host"
	"github.com/nstehr/ego/ipc"
)

const banner = `
███████╗ ██████╗  ██████╗
██╔════╝██╔════╝ ██╔═══██╗
█████╗  ██║  ███╗██║   ██║
██╔══╝  ██║   ██║██║   ██║
███████╗╚██████╔╝╚██████╔╝
╚══════╝ ╚═════╝  ╚═════╝

Tick-Driven Decision Engine`

var (
	configPath   string
	verbose      bool
	socketPath   string
	wsURL        string
	reloadPeriod time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "ego",
	Short:         "Real-time decision engine for a game agent",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve host sessions over a unix socket or a websocket",
	Long: `Serve runs one engine per host session.

By default it listens on a unix domain socket and accepts any number of
sessions. With --ws-url it dials a host that speaks websocket instead and
runs a single session until the connection closes.`,
	RunE: runServe,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Load and validate the configuration, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d rules, audit=%s\n", len(cfg.Rules), cfg.Audit.Kind)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	serveCmd.Flags().StringVar(&socketPath, "socket", "/tmp/ego.sock", "Unix socket to listen on")
	serveCmd.Flags().StringVar(&wsURL, "ws-url", "", "Dial this websocket host instead of listening")
	serveCmd.Flags().DurationVar(&reloadPeriod, "reload-every", 5*time.Second, "How often to check the config file for rule changes")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("ego failed", "error", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println(banner)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	sink, err := openSink(cfg.Audit)
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reloader *agent.Reloader
	if configPath != "" {
		reloader = agent.NewReloader(configPath, reloadPeriod)
		go reloader.Run(ctx)
	}

	factory := func(h host.Adapter, gameID string) (*engine.Engine, error) {
		return engine.New(h, cfg, audit.NewEmitter(sink, gameID, nil), nil)
	}

	slog.Info("starting ego", "audit", cfg.Audit.Kind, "rules", len(cfg.Rules))

	if wsURL != "" {
		t, err := ipc.DialWS(ctx, wsURL)
		if err != nil {
			return err
		}
		slog.Info("connected to websocket host", "url", wsURL)
		handleConn(ctx, t, factory, reloader)
		return nil
	}
	return listenUnix(ctx, factory, reloader)
}

func listenUnix(ctx context.Context, factory agent.EngineFactory, reloader *agent.Reloader) error {
	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("clean up socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	slog.Info("listening on domain socket", "path", socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				slog.Info("shutting down")
				return nil
			default:
				slog.Error("failed to accept connection", "error", err)
				continue
			}
		}
		slog.Info("new connection accepted")
		go handleConn(ctx, ipc.NewFrameTransport(conn), factory, reloader)
	}
}

func handleConn(ctx context.Context, t ipc.Transport, factory agent.EngineFactory, reloader *agent.Reloader) {
	c := ipc.NewConnection(t, nil)
	a := agent.New(c, factory, reloader)
	defer a.Close()
	c.RegisterHandler(ipc.TypeHello, a.HandleHello)
	c.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	c.ReadLoop(ctx)
}

// openSink picks the audit sink. Records from every session share it.
func openSink(cfg config.AuditConfig) (audit.Sink, error) {
	switch cfg.Kind {
	case "jsonl":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
		return audit.NewJSONLSink(cfg.Path, "ego"), nil
	case "sqlite":
		return audit.NewSQLiteSink(cfg.Path)
	case "log":
		return audit.LogSink{}, nil
	default:
		return audit.Discard{}, nil
	}
}
