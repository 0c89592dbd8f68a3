package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"wakeonlan/internal/config"
	"wakeonlan/internal/device"
	"wakeonlan/internal/history"
	"wakeonlan/internal/kv"
	"wakeonlan/internal/logging"
	"wakeonlan/internal/mqtt"
	"wakeonlan/internal/tui"
	"wakeonlan/internal/wol"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"
)

var version = "dev"

func main() {
	configFileName := flag.String("c", "", "YAML config file (default none)")
	listen := flag.Bool("listen", false, "print magic packets received on listen.port instead of starting the UI")
	renderConfig := flag.Bool("r", false, "render config and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(*configFileName)
	if err != nil {
		exitOnError(err)
	}

	if *renderConfig {
		rendered, err := yaml.Marshal(cfg)
		exitOnError(err)
		fmt.Print(string(rendered))
		return
	}

	exitOnError(run(cfg, *listen))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, listen bool) error {
	logger, err := logging.New(cfg.Logging, version)
	if err != nil {
		return err
	}
	defer logger.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle system signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	backend, err := kv.Open(kv.Config{
		Backend:     cfg.Store.Backend,
		Path:        cfg.Store.Path,
		BusyTimeout: cfg.Store.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer backend.Close()

	store := device.NewStore(backend,
		device.WithKey(cfg.Store.Key),
		device.WithStoreLogger(logger.With("component", "store")),
	)
	if _, err := store.Load(ctx); err != nil {
		return err
	}

	sender, err := newSender(cfg.Network)
	if err != nil {
		return err
	}

	tracker := history.NewTracker()
	svc := device.NewService(store, sender,
		device.WithRecorder(tracker),
		device.WithLogger(logger.With("component", "device")),
	)

	var bridge *mqtt.Bridge
	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		client.SetLogger(logger.With("component", "mqtt"))
		defer client.Close()

		bridge = mqtt.NewBridge(client, svc, cfg.MQTT.TopicPrefix, byte(cfg.MQTT.QoS), logger.With("component", "bridge"))
		if err := bridge.Start(); err != nil {
			return err
		}
		defer bridge.Stop()
	}

	logger.Info("wakeonlan started", "devices", store.Count(), "backend", cfg.Store.Backend, "listen", listen)

	if listen {
		return runListener(ctx, cfg.Listen.Port, svc, bridge, logger)
	}
	return runUI(ctx, svc, tracker, cfg.Network.DefaultPort)
}

func newSender(cfg config.NetworkConfig) (*wol.Sender, error) {
	opts := []wol.SenderOption{wol.WithTTL(cfg.TTL)}
	if cfg.Interface != "" {
		iface, err := net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, fmt.Errorf("network interface %q: %w", cfg.Interface, err)
		}
		opts = append(opts, wol.WithInterface(iface))
	}
	return wol.NewSender(opts...), nil
}

func runUI(ctx context.Context, svc *device.Service, tracker *history.Tracker, defaultPort int) error {
	model := tui.NewModel(svc, tracker, version, defaultPort)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := svc.Subscribe(tui.Notifier(p))
	defer unsubscribe()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func runListener(ctx context.Context, port int, svc *device.Service, bridge *mqtt.Bridge, logger *logging.Logger) error {
	listener := wol.NewListener(port)
	if err := listener.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Listening for magic packets on %v\n", listener.Addr())

	for evt := range listener.Events() {
		name := "unknown device"
		for _, d := range svc.List() {
			if strings.EqualFold(d.MAC, evt.Target.String()) {
				name = d.Name
				break
			}
		}

		fmt.Printf("%s  %s  from %v  (%s)\n", evt.ReceivedAt.Format("15:04:05"), evt.Target, evt.Source, name)
		logger.Info("magic packet observed", "mac", evt.Target.String(), "source", fmt.Sprint(evt.Source), "device", name)

		if bridge != nil {
			if err := bridge.PublishObserved(evt); err != nil {
				logger.Warn("failed to publish observed packet", "error", err)
			}
		}
	}
	return nil
}
