package transcode

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name      string
		dropVideo bool
		want      []string
	}{
		{
			name: "audio only",
			want: []string{"-y", "-i", "in.webm", "-ac", "1", "-ar", "16000", "-ab", "32k", "out.mp3", "-loglevel", "panic"},
		},
		{
			name:      "video discard",
			dropVideo: true,
			want:      []string{"-y", "-i", "in.webm", "-vn", "-ac", "1", "-ar", "16000", "-ab", "32k", "out.mp3", "-loglevel", "panic"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildArgs("in.webm", "out.mp3", tc.dropVideo)
			if len(got) != len(tc.want) {
				t.Fatalf("args = %v, want %v", got, tc.want)
			}
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Errorf("args[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestNewDefaultsBin(t *testing.T) {
	if got := New("").Bin(); got != DefaultBin {
		t.Errorf("Bin() = %q, want %q", got, DefaultBin)
	}
	if got := New("/opt/ffmpeg/bin/ffmpeg").Bin(); got != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("Bin() = %q, want explicit path", got)
	}
}

// fakeFFmpeg writes a shell script that mimics ffmpeg's exit behavior.
func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalizeSuccess(t *testing.T) {
	bin := fakeFFmpeg(t, "exit 0")
	inv := New(bin, WithTempDir(t.TempDir()))

	dst, err := inv.Normalize(context.Background(), "input.webm")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	defer os.Remove(dst)

	if !strings.HasSuffix(dst, ".mp3") {
		t.Errorf("output = %q, want .mp3 suffix", dst)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestNormalizeFailureRemovesOutput(t *testing.T) {
	bin := fakeFFmpeg(t, `echo "Invalid data found" >&2; exit 1`)
	dir := t.TempDir()
	inv := New(bin, WithTempDir(dir))

	_, err := inv.Normalize(context.Background(), "input.webm")
	if err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("error should carry ffmpeg stderr, got: %v", err)
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up: %v", entries)
	}
}

func TestNormalizeContextCancelled(t *testing.T) {
	bin := fakeFFmpeg(t, "sleep 10")
	inv := New(bin, WithTempDir(t.TempDir()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := inv.Normalize(ctx, "input.webm"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
