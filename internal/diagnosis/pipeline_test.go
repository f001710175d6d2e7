package diagnosis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hatsuonlab/hatsuon/internal/archive"
	"github.com/hatsuonlab/hatsuon/internal/logsink"
	"github.com/hatsuonlab/hatsuon/internal/observe"
	genaimock "github.com/hatsuonlab/hatsuon/pkg/genai/mock"
	"github.com/hatsuonlab/hatsuon/pkg/speech"
	speechmock "github.com/hatsuonlab/hatsuon/pkg/speech/mock"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// fakeNormalizer writes a real temp file so the pipeline's read-and-remove
// path is exercised.
type fakeNormalizer struct {
	err   error
	calls int
}

func (f *fakeNormalizer) Normalize(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	out, err := os.CreateTemp("", "fake-*.mp3")
	if err != nil {
		return "", err
	}
	out.WriteString("audio-bytes")
	out.Close()
	return out.Name(), nil
}

type fakeSink struct {
	err  error
	mu   sync.Mutex
	recs []logsink.Record
}

func (f *fakeSink) Append(_ context.Context, rec logsink.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

type fakeStore struct {
	err     error
	mu      sync.Mutex
	entries []archive.Entry
}

func (f *fakeStore) Save(_ context.Context, e *archive.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeStore) List(_ context.Context, _ int) ([]archive.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]archive.Entry(nil), f.entries...), nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func goodTranscription() *speech.Transcription {
	return &speech.Transcription{
		Transcript: "こんにちは",
		Words: []speech.Word{
			{Text: "こんにちは", Confidence: 0.95, Start: 0},
		},
		Alternatives: []string{"こんにちわ"},
	}
}

func newTestPipeline(t *testing.T, cfg PipelineConfig) *Pipeline {
	t.Helper()
	if cfg.Transcoder == nil {
		cfg.Transcoder = &fakeNormalizer{}
	}
	if cfg.Recognizer == nil {
		cfg.Recognizer = &speechmock.Recognizer{Result: goodTranscription()}
	}
	if cfg.Generator == nil {
		cfg.Generator = &genaimock.Generator{ModelName: "gemini-1.5-flash", Response: sampleReport}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = testMetrics(t)
	}
	p, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func TestAnalyzeHappyPath(t *testing.T) {
	sink := &fakeSink{}
	store := &fakeStore{}
	p := newTestPipeline(t, PipelineConfig{Sink: sink, Store: store})

	res, err := p.Analyze(context.Background(), Request{
		SessionID:   "sess-1",
		LearnerName: "ラオ・ミン",
		Nationality: "ベトナム",
		AudioPath:   "upload.webm",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Transcript != "こんにちは" {
		t.Errorf("Transcript = %q", res.Transcript)
	}
	if res.Summary.Score != "87" {
		t.Errorf("Score = %q, want 87", res.Summary.Score)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
	if !strings.HasSuffix(res.ArtifactName, "_report.txt") {
		t.Errorf("ArtifactName = %q", res.ArtifactName)
	}
	if !strings.Contains(res.Artifact, sampleReport) {
		t.Error("artifact should embed the report")
	}

	if len(sink.recs) != 1 {
		t.Fatalf("sink appends = %d, want 1", len(sink.recs))
	}
	if sink.recs[0].Score != "87" || sink.recs[0].LearnerName != "ラオ・ミン" {
		t.Errorf("sink record = %+v", sink.recs[0])
	}
	if len(store.entries) != 1 {
		t.Fatalf("archive saves = %d, want 1", len(store.entries))
	}
	if store.entries[0].SessionID != "sess-1" {
		t.Errorf("archived session = %q", store.entries[0].SessionID)
	}
}

func TestAnalyzeConversionErrorSkipsRecognition(t *testing.T) {
	rec := &speechmock.Recognizer{Result: goodTranscription()}
	p := newTestPipeline(t, PipelineConfig{
		Transcoder: &fakeNormalizer{err: errors.New("Invalid data found")},
		Recognizer: rec,
	})

	_, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "bad.bin"})
	if !errors.Is(err, ErrConversion) {
		t.Fatalf("err = %v, want ErrConversion", err)
	}
	if len(rec.Calls()) != 0 {
		t.Error("recognition must not run after a conversion error")
	}
}

func TestAnalyzeNoSpeechSkipsGeneration(t *testing.T) {
	gen := &genaimock.Generator{Response: sampleReport}
	sink := &fakeSink{}
	p := newTestPipeline(t, PipelineConfig{
		Recognizer: &speechmock.Recognizer{Err: speech.ErrNoSpeech},
		Generator:  gen,
		Sink:       sink,
	})

	_, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "silence.webm"})
	if !errors.Is(err, speech.ErrNoSpeech) {
		t.Fatalf("err = %v, want ErrNoSpeech", err)
	}
	if gen.CallCount() != 0 {
		t.Error("generation must not run without a transcript")
	}
	if len(sink.recs) != 0 {
		t.Error("logging must not run without a transcript")
	}
}

func TestAnalyzeAuthErrorPassthrough(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{
		Recognizer: &speechmock.Recognizer{Err: speech.ErrAuth},
	})
	_, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"})
	if !errors.Is(err, speech.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
}

func TestAnalyzeGenerationFailureDegradesToErrorReport(t *testing.T) {
	sink := &fakeSink{}
	p := newTestPipeline(t, PipelineConfig{
		Generator: &genaimock.Generator{Err: errors.New("all candidates failed: quota exceeded")},
		Sink:      sink,
	})

	res, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"})
	if err != nil {
		t.Fatalf("Analyze must not fail on generation errors, got %v", err)
	}
	if !strings.HasPrefix(res.Report, "❌ 予期せぬエラー:") {
		t.Errorf("Report = %q, want formatted error string", res.Report)
	}
	if !strings.Contains(res.Report, "quota exceeded") {
		t.Error("error report should embed the underlying message")
	}
	if len(res.Warnings) == 0 {
		t.Error("generation failure should add a warning")
	}
	// The error string never matches the score pattern, so logging is gated off.
	if len(sink.recs) != 0 {
		t.Error("extraction sentinel must suppress the log append")
	}
	if res.Artifact == "" {
		t.Error("session must still be downloadable")
	}
}

func TestAnalyzeSinkFailureIsNonFatal(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{
		Sink: &fakeSink{err: errors.New("503 backend error")},
	})

	res, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Summary.Score != "87" {
		t.Errorf("Score = %q, report must be unaffected", res.Summary.Score)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want exactly the sink warning", res.Warnings)
	}
}

func TestAnalyzeArchiveFailureIsNonFatal(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{
		Store: &fakeStore{err: errors.New("connection refused")},
	})

	res, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want exactly the archive warning", res.Warnings)
	}
}

func TestAnalyzeCleansUpNormalizedAudio(t *testing.T) {
	dir := t.TempDir()
	norm := &pathRecordingNormalizer{dir: dir}
	p := newTestPipeline(t, PipelineConfig{Transcoder: norm})

	if _, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := os.Stat(norm.produced); !os.IsNotExist(err) {
		t.Errorf("normalized file %q should be removed", norm.produced)
	}
}

type pathRecordingNormalizer struct {
	dir      string
	produced string
}

func (f *pathRecordingNormalizer) Normalize(_ context.Context, _ string) (string, error) {
	path := filepath.Join(f.dir, "normalized.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	f.produced = path
	return path, nil
}

func TestAnalyzeReportsProgressStages(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	p := newTestPipeline(t, PipelineConfig{
		Sink: &fakeSink{},
		Progress: func(_, stage string) {
			mu.Lock()
			stages = append(stages, stage)
			mu.Unlock()
		},
	})

	if _, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := []string{"transcoding", "recognizing", "generating", "logging", "done"}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stages[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

func TestSetGeneratorSwapsForNewAnalyses(t *testing.T) {
	old := &genaimock.Generator{ModelName: "old", Response: sampleReport}
	p := newTestPipeline(t, PipelineConfig{Generator: old})

	replacement := &genaimock.Generator{ModelName: "new", Response: sampleReport}
	p.SetGenerator(replacement)

	if _, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if old.CallCount() != 0 {
		t.Error("old generator should not be used after the swap")
	}
	if replacement.CallCount() != 1 {
		t.Errorf("replacement calls = %d, want 1", replacement.CallCount())
	}
}

func TestNewPipelineValidation(t *testing.T) {
	_, err := NewPipeline(PipelineConfig{})
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestAnalyzeTimestampsAreRecent(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{})
	res, err := p.Analyze(context.Background(), Request{SessionID: "s", AudioPath: "a.webm"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if time.Since(res.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v, want recent", res.CreatedAt)
	}
}
