package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  listen_address: \":8081\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(configPath, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watch loop time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(configPath, []byte("server:\n  listen_address: \":9999\"\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.ListenAddress != ":9999" {
			t.Errorf("expected reloaded address :9999, got %q", cfg.Server.ListenAddress)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcher_InvalidFileKeepsPrevious(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  listen_address: \":8081\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(configPath, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()
	time.Sleep(50 * time.Millisecond)

	// Broken YAML must not produce a reload.
	if err := os.WriteFile(configPath, []byte("server: [broken\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected reload with broken file: %+v", cfg)
	case <-time.After(300 * time.Millisecond):
	}

	// A subsequent good write still reloads.
	if err := os.WriteFile(configPath, []byte("server:\n  listen_address: \":7777\"\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.ListenAddress != ":7777" {
			t.Errorf("expected reloaded address :7777, got %q", cfg.Server.ListenAddress)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload after recovery")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  listen_address: \":8081\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(configPath, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(tmpDir, "other.yaml"), []byte("x: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write sibling: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("sibling file change should not trigger reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotentEnough(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server: {}\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	w, err := NewWatcher(configPath, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("stop before watch should not error: %v", err)
	}
}
