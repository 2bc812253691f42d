package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validMap = `C - 4 - 3
M - 1 - 1
T - 3 - 2 - 2
A - Indy - 0 - 0 - E - AADA
`

func writeMapFile(t *testing.T, dir, name, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(text), 0644))
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeMapFile(t, dir, "classic.txt", validMap)

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "classic", manager.GetDefault())
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		assert.Error(t, err)
	})

	t.Run("first valid map becomes default", func(t *testing.T) {
		dir := t.TempDir()
		writeMapFile(t, dir, "a_broken.txt", "C - -1 - 1\n")
		writeMapFile(t, dir, "b_island.txt", validMap)

		manager, err := NewManager(dir)
		require.NoError(t, err)
		assert.Equal(t, "b_island", manager.GetDefault())
	})

	t.Run("empty directory falls back to the built-in map", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultMapName, manager.GetDefault())

		text, err := manager.LoadMap(manager.GetDefault())
		require.NoError(t, err)
		assert.Contains(t, text, "A - Lara")
	})
}

func TestManager_LoadMap(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, "island.txt", validMap)
	writeMapFile(t, dir, "broken.txt", "C - 3 - -3\n")

	manager, err := NewManager(dir)
	require.NoError(t, err)

	t.Run("load existing map", func(t *testing.T) {
		text, err := manager.LoadMap("island")
		require.NoError(t, err)
		assert.Equal(t, validMap, text)
	})

	t.Run("load with extension", func(t *testing.T) {
		text, err := manager.LoadMap("island.txt")
		require.NoError(t, err)
		assert.Equal(t, validMap, text)
	})

	t.Run("load from cache", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(dir, "island.txt")))
		text, err := manager.LoadMap("island")
		require.NoError(t, err)
		assert.Equal(t, validMap, text)

		manager.RefreshCache()
		_, err = manager.LoadMap("island")
		assert.True(t, errors.Is(err, ErrMapNotFound))
	})

	t.Run("load non-existent map", func(t *testing.T) {
		_, err := manager.LoadMap("non-existent")
		assert.True(t, errors.Is(err, ErrMapNotFound))
	})

	t.Run("load invalid map", func(t *testing.T) {
		_, err := manager.LoadMap("broken")
		assert.True(t, errors.Is(err, ErrInvalidMap))
	})

	t.Run("path traversal", func(t *testing.T) {
		_, err := manager.LoadMap("../etc/passwd")
		assert.True(t, errors.Is(err, ErrInvalidMap))
	})
}

func TestManager_ListMaps(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, "island.txt", validMap)
	writeMapFile(t, dir, "empty.txt", "C - 2 - 2\n")
	writeMapFile(t, dir, "broken.txt", "C - -2 - 2\n")
	writeMapFile(t, dir, "readme.md", "not a map")

	manager, err := NewManager(dir)
	require.NoError(t, err)

	maps, err := manager.ListMaps()
	require.NoError(t, err)

	ids := []string{}
	for _, info := range maps {
		ids = append(ids, info.MapID)
	}
	assert.Equal(t, []string{"classic", "empty", "island"}, ids)

	island := maps[2]
	assert.Equal(t, "island.txt", island.Filename)
	assert.Equal(t, 4, island.Width)
	assert.Equal(t, 3, island.Height)
	assert.Equal(t, 1, island.Mountains)
	assert.Equal(t, 2, island.Treasures)
	assert.Equal(t, 1, island.Adventurers)
	assert.Equal(t, 4, island.MaxTurns)
	assert.Equal(t, 0, island.Warnings)

	assert.Equal(t, "", maps[0].Filename, "built-in maps have no file")
}

func TestManager_SaveMap(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	require.NoError(t, err)

	require.NoError(t, manager.SaveMap("custom", validMap))

	data, err := os.ReadFile(filepath.Join(dir, "custom.txt"))
	require.NoError(t, err)
	assert.Equal(t, validMap, string(data))

	require.NoError(t, manager.SetDefault("custom"))
	assert.Equal(t, "custom", manager.GetDefault())

	assert.True(t, errors.Is(manager.SaveMap("bad", "C - -1 - -1\n"), ErrInvalidMap))
	assert.True(t, errors.Is(manager.SaveMap("", validMap), ErrInvalidMap))
	assert.True(t, errors.Is(manager.SaveMap("../escape", validMap), ErrInvalidMap))
	assert.True(t, errors.Is(manager.SetDefault("missing"), ErrMapNotFound))
}

func TestValidate(t *testing.T) {
	warnings, err := Validate("C - 2 - 2\nM - 9 - 9\nT - 0 - 0\n")
	require.NoError(t, err)
	assert.Len(t, warnings, 2)

	_, err = Validate("C - -2 - 2\n")
	assert.True(t, errors.Is(err, ErrInvalidMap))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeMapFile(t, dir, "island.txt", validMap)
	manager, err := NewManager(dir)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := manager.LoadMap("island")
			assert.NoError(t, err)
			assert.Equal(t, validMap, text)
			_, err = manager.ListMaps()
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestLoadSettings(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		s, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), s)
	})

	t.Run("missing file gives defaults", func(t *testing.T) {
		s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), s)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		writeMapFile(t, filepath.Dir(path), "settings.yaml", "port: 9090\nmaps_dir: ./custom\nsession_ttl: 30m\nautoplay_interval: 250ms\nlog_level: debug\n")

		s, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, s.Port)
		assert.Equal(t, "./custom", s.MapsDir)
		assert.Equal(t, 30*time.Minute, s.SessionTTL)
		assert.Equal(t, 250*time.Millisecond, s.AutoplayInterval)
		assert.Equal(t, "localhost", s.Host, "unset keys keep their default")

		level, err := s.Level()
		require.NoError(t, err)
		assert.Equal(t, log.DebugLevel, level)
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := map[string]string{
			"bad port":     "port: 70000\n",
			"bad level":    "log_level: chatty\n",
			"bad duration": "session_ttl: soon\n",
			"negative ttl": "session_ttl: -1m\n",
		}
		for name, body := range tests {
			t.Run(name, func(t *testing.T) {
				dir := t.TempDir()
				writeMapFile(t, dir, "settings.yaml", body)
				_, err := LoadSettings(filepath.Join(dir, "settings.yaml"))
				assert.Error(t, err)
			})
		}
	})
}
