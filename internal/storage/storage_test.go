package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGameStats(t *testing.T) {
	t.Run("NewGameStats", func(t *testing.T) {
		stats := NewGameStats()
		if stats.GamesPlayed != 0 {
			t.Errorf("Expected 0 games played")
		}
		if stats.GetWinRate() != 0 {
			t.Errorf("Expected 0 win rate")
		}
	})

	t.Run("WinRate", func(t *testing.T) {
		stats := &GameStats{
			GamesPlayed: 10,
			Wins:        5,
			Losses:      3,
			Draws:       2,
		}
		rate := stats.GetWinRate()
		if rate != 50 {
			t.Errorf("Expected 50%% win rate, got %.2f%%", rate)
		}
	})
}

func TestDataPaths(t *testing.T) {
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	t.Logf("Data directory: %s", dataDir)
}

func TestConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir failed: %v", err)
	}
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		t.Errorf("Config directory was not created: %s", configDir)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "shogi-prefs-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	prefsPath := filepath.Join(tmpDir, "preferences.json")
	t.Setenv(prefsPathEnv, prefsPath)

	prefs, err := LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences on missing file failed: %v", err)
	}
	if prefs.Version != "1.0" {
		t.Errorf("expected schema version 1.0, got %s", prefs.Version)
	}
	if len(prefs.Options) != 0 {
		t.Errorf("expected no options on a fresh preferences file")
	}

	prefs.Set("USI_Threads", float64(4))
	if err := prefs.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	v, ok := loaded.Get("USI_Threads")
	if !ok {
		t.Fatal("expected USI_Threads to round-trip")
	}
	if v.(float64) != 4 {
		t.Errorf("expected USI_Threads=4, got %v", v)
	}
}

func TestStorageRecordGame(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "shogi-storage-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	db, err := newStorageAt(filepath.Join(tmpDir, "db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	defer db.Close()

	first, err := db.IsFirstLaunch()
	if err != nil {
		t.Fatalf("IsFirstLaunch failed: %v", err)
	}
	if !first {
		t.Error("expected first launch to be true on an empty store")
	}
	if err := db.MarkFirstLaunchComplete(); err != nil {
		t.Fatalf("MarkFirstLaunchComplete failed: %v", err)
	}

	if err := db.RecordGame(GameResult{Won: true, Duration: 2 * time.Second, Nodes: 12345}); err != nil {
		t.Fatalf("RecordGame failed: %v", err)
	}
	if err := db.RecordGame(GameResult{Draw: true, Duration: time.Second, Nodes: 100}); err != nil {
		t.Fatalf("RecordGame failed: %v", err)
	}

	stats, err := db.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if stats.GamesPlayed != 2 || stats.Wins != 1 || stats.Draws != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.TotalNodes != 12445 {
		t.Errorf("expected cumulative nodes 12445, got %d", stats.TotalNodes)
	}
}
