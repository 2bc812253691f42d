package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/treasure-quest/game/engine"
	"github.com/wricardo/treasure-quest/game/service"
)

var (
	ErrMapNotFound = service.ErrMapNotFound
	ErrInvalidMap  = service.ErrInvalidMap
)

// MapExt is the extension of map files in the catalog directory
const MapExt = ".txt"

// DefaultMapName is the map used when a session names none
const DefaultMapName = "classic"

// builtinMaps are served when the catalog directory does not override them
var builtinMaps = map[string]string{
	DefaultMapName: `# classic treasure map
C - 3 - 4
M - 1 - 0
M - 2 - 1
T - 0 - 3 - 2
T - 1 - 3 - 3
A - Lara - 1 - 1 - S - AADADAGGA
`,
}

// Manager is the map catalog: a directory of map files with an in-memory cache
type Manager struct {
	mapDir     string
	defaultMap string
	maps       map[string]string
	mu         sync.RWMutex
}

// NewManager creates a new map catalog over mapDir
func NewManager(mapDir string) (*Manager, error) {
	// Ensure map directory exists
	if info, err := os.Stat(mapDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("map directory does not exist: %s", mapDir)
	}

	m := &Manager{
		mapDir: mapDir,
		maps:   make(map[string]string),
	}
	m.defaultMap = m.pickDefault()
	return m, nil
}

// LoadMap returns the text of a map by name, with or without the extension
func (m *Manager) LoadMap(name string) (string, error) {
	name = mapName(name)
	if err := checkName(name); err != nil {
		return "", err
	}

	m.mu.RLock()
	// Check cache first
	if text, exists := m.maps[name]; exists {
		m.mu.RUnlock()
		return text, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if text, exists := m.maps[name]; exists {
		return text, nil
	}

	data, err := os.ReadFile(filepath.Join(m.mapDir, name+MapExt))
	if err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to read map file: %w", err)
		}
		builtin, ok := builtinMaps[name]
		if !ok {
			return "", ErrMapNotFound
		}
		data = []byte(builtin)
	}

	text := string(data)
	if _, err := Validate(text); err != nil {
		return "", err
	}

	m.maps[name] = text
	return text, nil
}

// ListMaps returns information about every map in the catalog
func (m *Manager) ListMaps() ([]*service.MapInfo, error) {
	entries, err := os.ReadDir(m.mapDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read map directory: %w", err)
	}

	seen := make(map[string]bool)
	var maps []*service.MapInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), MapExt) {
			continue
		}
		name := mapName(entry.Name())
		text, err := m.LoadMap(name)
		if err != nil {
			// Skip invalid maps
			continue
		}
		seen[name] = true
		maps = append(maps, Describe(entry.Name(), name, text))
	}

	for name, text := range builtinMaps {
		if !seen[name] {
			maps = append(maps, Describe("", name, text))
		}
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].MapID < maps[j].MapID })
	return maps, nil
}

// GetDefault returns the name of the default map
func (m *Manager) GetDefault() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultMap
}

// SetDefault sets the default map by name
func (m *Manager) SetDefault(name string) error {
	if _, err := m.LoadMap(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultMap = mapName(name)
	return nil
}

// RefreshCache drops every cached map so the next load rereads the directory
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.maps = make(map[string]string)
	m.mu.Unlock()
}

// SaveMap validates a map and writes it to the catalog directory
func (m *Manager) SaveMap(name, text string) error {
	name = mapName(name)
	if err := checkName(name); err != nil {
		return err
	}
	if _, err := Validate(text); err != nil {
		return err
	}

	path := filepath.Join(m.mapDir, name+MapExt)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write map file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.maps[name] = text
	m.mu.Unlock()

	return nil
}

// pickDefault prefers the classic map, then the first map on disk
func (m *Manager) pickDefault() string {
	if _, err := os.Stat(filepath.Join(m.mapDir, DefaultMapName+MapExt)); err == nil {
		return DefaultMapName
	}
	entries, err := os.ReadDir(m.mapDir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), MapExt) {
				continue
			}
			if _, err := m.LoadMap(entry.Name()); err == nil {
				return mapName(entry.Name())
			}
		}
	}
	return DefaultMapName
}

// Validate parses a map text and returns its warnings. Only a map that cannot
// be loaded at all is an error.
func Validate(text string) ([]*engine.ParseWarning, error) {
	m, err := engine.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMap, err)
	}
	return m.Warnings, nil
}

// Describe summarizes a map text for listings
func Describe(filename, name, text string) *service.MapInfo {
	info := &service.MapInfo{Filename: filename, MapID: name}
	m, err := engine.Parse(text)
	if err != nil {
		return info
	}
	info.Width = m.Grid.Width()
	info.Height = m.Grid.Height()
	info.Mountains = len(m.Grid.Mountains())
	info.Treasures = engine.CountTreasures(m.Grid)
	info.Adventurers = m.Adventurers.Len()
	info.MaxTurns = m.MaxTurns
	info.Warnings = len(m.Warnings)
	return info
}

func mapName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), MapExt)
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: bad map name %q", ErrInvalidMap, name)
	}
	return nil
}
