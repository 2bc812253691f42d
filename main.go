// Command treasure-quest starts the treasure hunt simulation server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Settings come from an optional YAML file; flags given on the command line
// override it. An optional ngrok tunnel exposes the server publicly during
// development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/wricardo/treasure-quest/api"
	"github.com/wricardo/treasure-quest/game/config"
	"github.com/wricardo/treasure-quest/game/service"
	"github.com/wricardo/treasure-quest/game/session"
	"github.com/wricardo/treasure-quest/transport/mcp"
	"github.com/wricardo/treasure-quest/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Treasure Quest Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	mapsDir      = flag.String("maps-dir", getMapsDirDefault(), "Directory containing map files")
	defaultMap   = flag.String("default-map", "", "Map used when a session names none (defaults to classic)")
	settingsFile = flag.String("config", os.Getenv("TREASURE_CONFIG"), "YAML settings file (optional)")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getMapsDirDefault honors the MAPS_DIR environment variable, then falls back to "maps".
func getMapsDirDefault() string {
	if dir := os.Getenv("MAPS_DIR"); dir != "" {
		return dir
	}
	return "maps"
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config treasure.yaml    # Read settings from a file\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 stdio-mcp     # Run MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nSend SIGHUP to reread edited map files.\n")
	}
}

// app holds the wired components shared by both modes
type app struct {
	settings config.Settings
	sessions *session.Manager
	maps     *config.Manager
	hub      *websocket.Hub
	service  service.SimulationService
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("error loading .env file")
		}
	} else {
		log.Info("loaded environment variables from .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	settings, err := loadSettings(*settingsFile, explicitFlags())
	if err != nil {
		log.WithError(err).Fatal("failed to load settings")
	}

	level, _ := settings.Level()
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// Determine mode from command
	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	log.WithFields(log.Fields{
		"version": Version,
		"mode":    mode,
		"maps":    settings.MapsDir,
	}).Infof("starting %s", AppName)

	a, err := initializeServices(settings)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize services")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessionCleanupRoutine(ctx, a.sessions, settings.CleanupInterval, settings.SessionTTL)

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		runStdioMCPWithInternalServer(a)

	case "server", "http":
		runHTTPServer(ctx, a)

	default:
		log.Fatalf("unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}

	a.shutdown()
}

// explicitFlags reports the flags given on the command line
func explicitFlags() map[string]bool {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return set
}

// loadSettings reads the settings file and applies the flags that were set
// explicitly on the command line.
func loadSettings(path string, set map[string]bool) (config.Settings, error) {
	settings, err := config.LoadSettings(path)
	if err != nil {
		return settings, err
	}

	if set["host"] {
		settings.Host = *host
	}
	if set["port"] {
		settings.Port = *port
	}
	if set["maps-dir"] || path == "" || settings.MapsDir == "" {
		settings.MapsDir = *mapsDir
	}
	if set["default-map"] {
		settings.DefaultMap = *defaultMap
	}
	if *debug {
		settings.LogLevel = "debug"
	}

	return settings, settings.Validate()
}

// initializeServices wires the map catalog, session manager, websocket hub and
// simulation service.
func initializeServices(settings config.Settings) (*app, error) {
	maps, err := config.NewManager(settings.MapsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create map catalog: %w", err)
	}
	if settings.DefaultMap != "" {
		if err := maps.SetDefault(settings.DefaultMap); err != nil {
			return nil, fmt.Errorf("failed to set default map %q: %w", settings.DefaultMap, err)
		}
	}

	sessions := session.NewManager()

	hub := websocket.NewHub()
	go hub.Run()

	return &app{
		settings: settings,
		sessions: sessions,
		maps:     maps,
		hub:      hub,
		service:  service.NewSimulationService(sessions, maps, hub),
	}, nil
}

// shutdown stops auto-play goroutines and the websocket hub
func (a *app) shutdown() {
	a.service.Shutdown()
	a.hub.Stop()
}

func (a *app) apiServer() *api.Server {
	s := api.NewServer(a.service, a.hub)
	s.SetPlayInterval(a.settings.AutoplayInterval)
	return s
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.WithField("removed", removed).Info("cleaned up expired sessions")
			}
		}
	}
}

// mapReloadRoutine drops the map catalog cache on every signal so edited map
// files are read again.
func mapReloadRoutine(ctx context.Context, maps *config.Manager, reload <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-reload:
			maps.RefreshCache()
			log.WithField("signal", sig).Info("map catalog reloaded")
		}
	}
}

// mcpHandler serves single JSON-RPC messages over HTTP POST
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, a *app) {
	addr := fmt.Sprintf("%s:%d", a.settings.Host, a.settings.Port)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", a.apiServer())
	mainRouter.HandleFunc("/mcp", mcpHandler(mcp.NewClient(fmt.Sprintf("http://%s", addr))))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)
	go mapReloadRoutine(ctx, a.maps, hangup)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(log.Fields{
			"rest":      fmt.Sprintf("http://%s/api", addr),
			"websocket": fmt.Sprintf("ws://%s/ws?session=<session_id>", addr),
			"mcp":       fmt.Sprintf("http://%s/mcp", addr),
		}).Infof("HTTP server listening on %s", addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	ngrokShouldRun := *ngrokEnabled
	if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
		ngrokShouldRun = true
	}

	if ngrokShouldRun {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, mainRouter)
		}()
	}

	sig := <-stop
	log.WithField("signal", sig).Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info("server stopped")
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, handler http.Handler) {
	authToken := *ngrokAuth
	if authToken == "" {
		authToken = os.Getenv("NGROK_AUTHTOKEN")
		if authToken == "" {
			authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}

	if authToken == "" {
		log.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.WithError(err).Error("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.WithError(err).Warn("failed to close ngrok tunnel")
		}
	}()

	log.WithFields(log.Fields{
		"url":    tun.URL(),
		"domain": domain,
	}).Info("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		log.WithError(err).Warn("ngrok server error")
	}
	log.Info("ngrok tunnel closed")
}

// apiAvailable reports whether a healthy API answers at baseURL
func apiAvailable(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable,
// it starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(a *app) {
	externalURL := fmt.Sprintf("http://%s:%d", a.settings.Host, a.settings.Port)
	baseURL := externalURL

	if apiAvailable(&http.Client{Timeout: 2 * time.Second}, externalURL) {
		log.WithField("url", externalURL).Info("external API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			log.WithError(err).Fatal("failed to get available port")
		}

		httpServer := &http.Server{Handler: a.apiServer()}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		log.WithField("url", baseURL).Info("started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		log.WithError(err).Error("MCP stdio server error")
	}
}
