package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsufriends-org/steam-upload-helper/internal/app"
	"github.com/matsufriends-org/steam-upload-helper/internal/config"
	"github.com/matsufriends-org/steam-upload-helper/internal/frontend"
	"github.com/matsufriends-org/steam-upload-helper/internal/inject"
	"github.com/matsufriends-org/steam-upload-helper/internal/probe"
	"github.com/matsufriends-org/steam-upload-helper/internal/state"
	"github.com/matsufriends-org/steam-upload-helper/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Simulate the SteamCMD console instead of launching it")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	authToken := flag.String("token", "", "Require this token on every request")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	store := state.NewStore()
	broadcaster := ws.NewBroadcaster(store, 100*time.Millisecond, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var p probe.Probe
	var driver app.ConsoleDriver
	if *mockMode {
		log.Println("Starting in mock mode (simulated console)")
		md := newMockDriver()
		p = md.probe()
		driver = md
	} else {
		log.Println("Starting in real mode")
		p = probe.New(cfg.Monitor.ProbeTimeout)
		injector := inject.New(cfg.Monitor.InjectTimeout)
		driver = app.NewSteamDriver(func() string {
			return currentContentBuilderPath(cfg)
		}, injector)
	}

	application, err := app.New(ctx, cfg, store, broadcaster, p, driver)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	server := ws.NewServer(store, broadcaster, application, nil, *authToken)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	mux.Handle("/", frontend.Handler())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		application.Shutdown()
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// currentContentBuilderPath re-reads the persisted settings so a path the
// user fixed through the API takes effect on the next login.
func currentContentBuilderPath(cfg *config.Config) string {
	s, err := config.LoadSettings(cfg.Steam.SettingsPath)
	if err != nil {
		log.Printf("read settings: %v", err)
		return ""
	}
	return s.ContentBuilderPath
}
