package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/wricardo/treasure-quest/game/config"
	"github.com/wricardo/treasure-quest/game/service"
	"github.com/wricardo/treasure-quest/game/session"
	"github.com/wricardo/treasure-quest/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Treasure Quest Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}

	if *host == "" {
		t.Error("Host should have a default value")
	}

	if *mapsDir == "" {
		t.Error("Maps directory should have a default value")
	}
}

func TestLoadSettings_NoFile(t *testing.T) {
	settings, err := loadSettings("", map[string]bool{})
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	if settings.MapsDir != *mapsDir {
		t.Errorf("Expected maps dir from flag default %s, got %s", *mapsDir, settings.MapsDir)
	}
	if settings.Port != 8080 {
		t.Errorf("Expected default port, got %d", settings.Port)
	}
}

func TestLoadSettings_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treasure.yaml")
	content := "host: 0.0.0.0\nport: 9000\nmaps_dir: /srv/maps\nautoplay_interval: 250ms\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	originalPort := *port
	*port = 9191
	defer func() { *port = originalPort }()

	settings, err := loadSettings(path, map[string]bool{"port": true})
	if err != nil {
		t.Fatalf("loadSettings failed: %v", err)
	}

	if settings.Port != 9191 {
		t.Errorf("Expected explicit flag to win, got port %d", settings.Port)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected host from file, got %s", settings.Host)
	}
	if settings.MapsDir != "/srv/maps" {
		t.Errorf("Expected maps dir from file, got %s", settings.MapsDir)
	}
	if settings.AutoplayInterval != 250*time.Millisecond {
		t.Errorf("Expected autoplay interval from file, got %s", settings.AutoplayInterval)
	}
}

func TestLoadSettings_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treasure.yaml")
	if err := os.WriteFile(path, []byte("log_level: chatty\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadSettings(path, map[string]bool{}); err == nil {
		t.Error("Expected error for an unknown log level")
	}
}

func TestInitializeServices(t *testing.T) {
	settings, err := loadSettings("", map[string]bool{})
	if err != nil {
		t.Fatal(err)
	}
	settings.MapsDir = t.TempDir()

	a, err := initializeServices(settings)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.shutdown()

	if a.service == nil || a.hub == nil || a.sessions == nil {
		t.Fatal("Expected all components to be initialized")
	}

	// The built-in map keeps an empty catalog usable
	info, err := a.service.CreateSession(context.Background(), service.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.MapName != "classic" {
		t.Errorf("Expected built-in classic map, got %s", info.MapName)
	}
}

func TestInitializeServices_DefaultMap(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"alpha.txt", "duel.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("C - 3 - 1\nA - Lara - 0 - 0 - E - A\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	original := *defaultMap
	*defaultMap = "duel"
	defer func() { *defaultMap = original }()

	settings, err := loadSettings("", map[string]bool{"default-map": true})
	if err != nil {
		t.Fatal(err)
	}
	settings.MapsDir = dir

	a, err := initializeServices(settings)
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer a.shutdown()

	info, err := a.service.CreateSession(context.Background(), service.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if info.MapName != "duel" {
		t.Errorf("Expected the configured default map, got %s", info.MapName)
	}
}

func TestInitializeServices_UnknownDefaultMap(t *testing.T) {
	settings, _ := loadSettings("", map[string]bool{})
	settings.MapsDir = t.TempDir()
	settings.DefaultMap = "nowhere"

	if _, err := initializeServices(settings); err == nil {
		t.Error("Expected error for a default map that does not exist")
	}
}

func TestInitializeServices_InvalidMapsDir(t *testing.T) {
	settings, _ := loadSettings("", map[string]bool{})
	settings.MapsDir = "/non/existent/path"

	if _, err := initializeServices(settings); err == nil {
		t.Error("Expected error for non-existent maps directory")
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	manager := session.NewManager()
	if _, err := manager.Create("", "tiny", "C - 1 - 1\n"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, manager, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for manager.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if manager.Count() != 0 {
		t.Error("Expected the expired session to be removed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Cleanup routine did not stop on cancel")
	}
}

func TestSessionCleanupRoutine_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(context.Background(), session.NewManager(), 0, time.Hour)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("A zero interval should disable the cleanup routine")
	}
}

func TestMCPHandler_MethodNotAllowed(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0"))

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/mcp", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestMapReloadRoutine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.txt")
	if err := os.WriteFile(path, []byte("C - 1 - 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	maps, err := config.NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := maps.LoadMap("tiny"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("C - 2 - 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reload := make(chan os.Signal, 1)
	go mapReloadRoutine(ctx, maps, reload)

	if text, _ := maps.LoadMap("tiny"); text != "C - 1 - 1\n" {
		t.Fatalf("Expected the cached map before reload, got %q", text)
	}

	reload <- syscall.SIGHUP

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if text, _ := maps.LoadMap("tiny"); text == "C - 2 - 2\n" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Expected the edited map after reload")
}

// closeTracker records whether a response body was closed
type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestAPIAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"healthy", http.StatusOK, true},
		{"server error", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &closeTracker{Reader: strings.NewReader("{}")}
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.URL.Path != "/api/health" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				return &http.Response{StatusCode: tt.status, Body: body, Header: http.Header{}, Request: r}, nil
			})}

			if got := apiAvailable(client, "http://api.test"); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
			if !body.closed {
				t.Error("Expected the response body to be closed")
			}
		})
	}

	if apiAvailable(&http.Client{Timeout: time.Second}, "http://127.0.0.1:0") {
		t.Error("Expected an unreachable API to be unavailable")
	}
}
