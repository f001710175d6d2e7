package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	// Some filesystems have coarse mtime granularity; bump it explicitly so
	// the watcher's cheap mtime check sees the edit.
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestWatcherInvokesLateRegisteredCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "credentials:\n  gemini_api_key: key-1\n")

	w, err := NewWatcher(path, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Credentials.GeminiAPIKey; got != "key-1" {
		t.Fatalf("initial gemini_api_key = %q, want key-1", got)
	}

	// Registered after the poll goroutine is already running, the way main
	// wires the pipeline reload.
	type reload struct{ old, new *Config }
	reloads := make(chan reload, 1)
	w.OnChange(func(old, new *Config) {
		select {
		case reloads <- reload{old, new}:
		default:
		}
	})

	writeConfigFile(t, path, "credentials:\n  gemini_api_key: key-2\n")

	select {
	case r := <-reloads:
		if r.old.Credentials.GeminiAPIKey != "key-1" {
			t.Errorf("old gemini_api_key = %q, want key-1", r.old.Credentials.GeminiAPIKey)
		}
		if r.new.Credentials.GeminiAPIKey != "key-2" {
			t.Errorf("new gemini_api_key = %q, want key-2", r.new.Credentials.GeminiAPIKey)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}

	if got := w.Current().Credentials.GeminiAPIKey; got != "key-2" {
		t.Errorf("Current gemini_api_key = %q, want key-2", got)
	}
}

func TestWatcherKeepsConfigOnInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFile(t, path, "credentials:\n  gemini_api_key: key-1\n")

	w, err := NewWatcher(path, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	reloads := make(chan struct{}, 1)
	w.OnChange(func(old, new *Config) {
		select {
		case reloads <- struct{}{}:
		default:
		}
	})

	// Unknown fields fail the strict decode; the previous config stays.
	writeConfigFile(t, path, "credentails:\n  gemini_api_key: key-2\n")

	select {
	case <-reloads:
		t.Fatal("callback fired for an invalid config")
	case <-time.After(200 * time.Millisecond):
	}
	if got := w.Current().Credentials.GeminiAPIKey; got != "key-1" {
		t.Errorf("Current gemini_api_key = %q, want key-1", got)
	}
}
