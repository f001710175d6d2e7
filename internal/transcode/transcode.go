// Package transcode normalizes uploaded learner audio for speech recognition
// by shelling out to ffmpeg. Any container ffmpeg can read (webm, m4a, mp4,
// wav, ogg, ...) is converted to mono 16 kHz 32 kbps MP3, the format the
// recognition request is configured for.
package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultBin is the ffmpeg binary looked up on PATH when none is configured.
const DefaultBin = "ffmpeg"

// Invoker runs ffmpeg to normalize audio files.
type Invoker struct {
	bin       string
	tempDir   string
	dropVideo bool
}

// Option configures an [Invoker].
type Option func(*Invoker)

// WithTempDir sets the directory for normalized output files.
// The default is the system temp directory.
func WithTempDir(dir string) Option {
	return func(i *Invoker) { i.tempDir = dir }
}

// WithVideoDiscard adds -vn so video streams in uploaded containers (e.g.
// phone recordings saved as mp4) are dropped instead of transcoded.
func WithVideoDiscard() Option {
	return func(i *Invoker) { i.dropVideo = true }
}

// New creates an Invoker for the given ffmpeg binary. An empty bin selects
// [DefaultBin].
func New(bin string, opts ...Option) *Invoker {
	if bin == "" {
		bin = DefaultBin
	}
	inv := &Invoker{bin: bin}
	for _, o := range opts {
		o(inv)
	}
	return inv
}

// Bin returns the configured ffmpeg binary name.
func (i *Invoker) Bin() string { return i.bin }

// Normalize converts the audio file at src to mono/16kHz/32kbps MP3 and
// returns the path of the new temporary file. The caller owns the returned
// file and must remove it. On failure no file is left behind.
func (i *Invoker) Normalize(ctx context.Context, src string) (string, error) {
	out, err := os.CreateTemp(i.tempDir, "hatsuon-*.mp3")
	if err != nil {
		return "", fmt.Errorf("transcode: create temp file: %w", err)
	}
	dst := out.Name()
	out.Close()

	cmd := exec.CommandContext(ctx, i.bin, buildArgs(src, dst, i.dropVideo)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("transcode: %s failed: %w: %s", i.bin, err, strings.TrimSpace(string(output)))
	}
	return dst, nil
}

// buildArgs assembles the ffmpeg argument list for normalization.
// -y lets ffmpeg overwrite the pre-created temp file.
func buildArgs(src, dst string, dropVideo bool) []string {
	args := []string{"-y", "-i", src}
	if dropVideo {
		args = append(args, "-vn")
	}
	return append(args,
		"-ac", "1",
		"-ar", "16000",
		"-ab", "32k",
		dst,
		"-loglevel", "panic",
	)
}
