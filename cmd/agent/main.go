// Package main is the entry point for the society gate agent.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/society-gate/agent/internal/access"
	"github.com/society-gate/agent/internal/api"
	"github.com/society-gate/agent/internal/platform"
	"github.com/society-gate/agent/internal/preapproval"
	"github.com/society-gate/agent/internal/storage"
	"github.com/society-gate/agent/internal/tracker"
	"github.com/society-gate/agent/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	addr := flag.String("addr", ":8100", "HTTP server address for the display API")
	dataDir := flag.String("data", "/data", "Data directory for the SQLite journal")
	staticDir := flag.String("static", "./static", "Directory for static display files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// Optional .env for local deployments; environment wins when both set
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	config := platform.DefaultConfig()
	log.Printf("Starting gate agent %q (version: %s, platform: %s)", config.Gate, version, config.BaseURL)

	// Initialize journal database
	dbPath := *dataDir + "/gate-agent.db"
	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Authenticate against the platform
	session := platform.NewSession()
	if token := os.Getenv("PLATFORM_TOKEN"); token != "" {
		session = platform.NewSessionWithToken(token)
	}
	client := platform.NewClient(config, session)

	if !session.Authenticated() {
		email := os.Getenv("GATE_EMAIL")
		password := os.Getenv("GATE_PASSWORD")
		if email == "" || password == "" {
			log.Fatal("Set PLATFORM_TOKEN, or GATE_EMAIL and GATE_PASSWORD, to authenticate the gate account")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := client.Login(ctx, email, password); err != nil {
			cancel()
			log.Fatalf("Platform login failed: %v", err)
		}
		cancel()
		log.Println("Platform login complete")
	}

	societyID, _ := strconv.ParseInt(os.Getenv("SOCIETY_ID"), 10, 64)

	// Initialize WebSocket hub for gate displays
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize journal repository and services
	journal := storage.NewJournalRepository(db)
	trk := tracker.New(client, journal, hub, 0)
	preApprovals := preapproval.NewService(client, journal)
	accessSvc := access.NewService(client, journal, hub)

	// Start background watchers
	overstay := tracker.NewOverstayWatcher(client, journal, hub, societyID, 0)
	overstay.Start()

	janitor := storage.NewJournalJanitor(journal, 0)
	janitor.Start()

	// Initialize HTTP router
	router := api.NewRouter(api.Services{
		DB:           db,
		Journal:      journal,
		Hub:          hub,
		Platform:     client,
		Tracker:      trk,
		PreApprovals: preApprovals,
		Access:       accessSvc,
		SocietyID:    societyID,
		StaticDir:    *staticDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Display API listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down agent...")

	// Stop background work before the server so nothing broadcasts into a
	// closing hub
	overstay.Stop()
	janitor.Stop()
	trk.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Agent stopped")
}

// runHealthCheck performs a health check against the running agent.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
