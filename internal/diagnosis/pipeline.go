package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hatsuonlab/hatsuon/internal/archive"
	"github.com/hatsuonlab/hatsuon/internal/logsink"
	"github.com/hatsuonlab/hatsuon/internal/observe"
	"github.com/hatsuonlab/hatsuon/pkg/genai"
	"github.com/hatsuonlab/hatsuon/pkg/speech"
)

// ErrConversion indicates the uploaded audio could not be normalized.
// The pipeline aborts before recognition.
var ErrConversion = errors.New("audio conversion failed")

// Normalizer converts an uploaded file into recognition-ready audio.
// Implemented by transcode.Invoker.
type Normalizer interface {
	Normalize(ctx context.Context, src string) (string, error)
}

// Request is one analysis invocation.
type Request struct {
	// SessionID identifies this analysis for progress reporting and
	// archiving.
	SessionID string

	// LearnerName is optional; empty means anonymous.
	LearnerName string

	// Nationality is optional; empty means unknown.
	Nationality string

	// AudioPath is the uploaded file on local disk. The caller owns it.
	AudioPath string
}

// Result is everything the presentation layer needs to render a completed
// analysis.
type Result struct {
	SessionID   string
	LearnerName string
	Nationality string

	Transcript string
	Words      []speech.Word
	Detail     string
	AltSpread  string

	// Report is the generated diagnosis text. When every model failed it
	// holds the formatted error string instead; the session is still
	// reviewable and downloadable.
	Report string

	Summary Summary

	// Warnings collects non-fatal problems (generation failure, log-append
	// failure, archive failure) for inline display.
	Warnings []string

	ArtifactName string
	Artifact     string

	CreatedAt time.Time
}

// Pipeline runs the linear analysis flow: normalize, recognize, prompt,
// generate, extract, log, archive. Stages before a successful transcript are
// fail-fast; stages after it degrade independently.
//
// Sink and Archive may be nil, disabling those stages. Safe for concurrent
// use; each Analyze call is independent.
type Pipeline struct {
	transcoder Normalizer
	recognizer speech.Recognizer
	sink       logsink.Sink
	store      archive.Store
	metrics    *observe.Metrics
	recCfg     speech.Config

	// progress, when non-nil, receives coarse stage names for the live
	// progress feed.
	progress func(sessionID, stage string)

	mu        sync.RWMutex
	generator genai.Generator
}

// PipelineConfig collects the pipeline's collaborators.
type PipelineConfig struct {
	Transcoder  Normalizer
	Recognizer  speech.Recognizer
	Generator   genai.Generator
	Sink        logsink.Sink     // optional
	Store       archive.Store    // optional
	Metrics     *observe.Metrics // optional, defaults to observe.DefaultMetrics()
	Recognition speech.Config
	Progress    func(sessionID, stage string) // optional
}

// NewPipeline validates the required collaborators and builds a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Transcoder == nil {
		return nil, fmt.Errorf("diagnosis: Transcoder is required")
	}
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("diagnosis: Recognizer is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("diagnosis: Generator is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Pipeline{
		transcoder: cfg.Transcoder,
		recognizer: cfg.Recognizer,
		generator:  cfg.Generator,
		sink:       cfg.Sink,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		recCfg:     cfg.Recognition,
		progress:   cfg.Progress,
	}, nil
}

// SetGenerator swaps the report generator, e.g. after a config reload
// changed the model fallback list. In-flight analyses keep the generator
// they started with.
func (p *Pipeline) SetGenerator(g genai.Generator) {
	p.mu.Lock()
	p.generator = g
	p.mu.Unlock()
}

func (p *Pipeline) currentGenerator() genai.Generator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.generator
}

func (p *Pipeline) report(sessionID, stage string) {
	if p.progress != nil {
		p.progress(sessionID, stage)
	}
}

// Analyze runs the full pipeline for one uploaded audio file.
//
// Returned errors are always one of: [ErrConversion], [speech.ErrAuth],
// [speech.ErrNoSpeech], or a wrapped recognition transport error. Generation,
// extraction, logging, and archiving failures never surface as errors; they
// degrade into the Result's Report and Warnings.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "diagnosis.Analyze")
	defer span.End()
	log := observe.Logger(ctx).With("session_id", req.SessionID)

	p.metrics.ActiveAnalyses.Add(ctx, 1)
	defer p.metrics.ActiveAnalyses.Add(ctx, -1)

	// 1. Normalize.
	p.report(req.SessionID, "transcoding")
	start := time.Now()
	normalized, err := p.transcoder.Normalize(ctx, req.AudioPath)
	p.metrics.TranscodeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordAnalysis(ctx, "conversion_error")
		log.Error("audio normalization failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	audio, err := os.ReadFile(normalized)
	os.Remove(normalized)
	if err != nil {
		p.metrics.RecordAnalysis(ctx, "conversion_error")
		return nil, fmt.Errorf("%w: read normalized audio: %v", ErrConversion, err)
	}

	// 2. Recognize. Fail-fast: without a transcript there is nothing to
	// diagnose.
	p.report(req.SessionID, "recognizing")
	start = time.Now()
	tr, err := p.recognizer.Recognize(ctx, audio, p.recCfg)
	p.metrics.RecognizeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrNoSpeech):
			p.metrics.RecordAnalysis(ctx, "no_speech")
		case errors.Is(err, speech.ErrAuth):
			p.metrics.RecordAnalysis(ctx, "auth_error")
		default:
			p.metrics.RecordAnalysis(ctx, "recognition_error")
			p.metrics.RecordProviderError(ctx, "speech", "recognize")
		}
		log.Error("recognition failed", "error", err)
		return nil, err
	}

	res := &Result{
		SessionID:   req.SessionID,
		LearnerName: req.LearnerName,
		Nationality: req.Nationality,
		Transcript:  tr.Transcript,
		Words:       tr.Words,
		Detail:      speech.FormatDetail(tr.Words),
		AltSpread:   AlternativeSpread(tr.Transcript, tr.Alternatives),
		CreatedAt:   time.Now(),
	}

	// 3. Generate. Fail-soft: the teacher still gets the transcript and a
	// formatted error string in place of the report.
	p.report(req.SessionID, "generating")
	prompt := BuildPrompt(PromptInput{
		LearnerName: req.LearnerName,
		Nationality: req.Nationality,
		Transcript:  res.Transcript,
		Detail:      res.Detail,
		AltSpread:   res.AltSpread,
	})
	gen := p.currentGenerator()
	start = time.Now()
	report, err := gen.Generate(ctx, prompt)
	p.metrics.GenerateDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordProviderError(ctx, gen.Name(), "generate")
		log.Warn("report generation failed", "error", err)
		report = fmt.Sprintf("❌ 予期せぬエラー: %v", err)
		res.Warnings = append(res.Warnings, "診断カルテの生成に失敗しました。")
	}
	res.Report = report

	// 4. Extract. Pure and tolerant; sentinels gate the logging step only.
	res.Summary = Extract(report)

	// 5. Log. Best-effort, only for successfully extracted summaries.
	if p.sink != nil && res.Summary.Extracted() {
		p.report(req.SessionID, "logging")
		start = time.Now()
		sinkErr := p.sink.Append(ctx, logsink.Record{
			Timestamp:   res.CreatedAt,
			LearnerName: req.LearnerName,
			Nationality: req.Nationality,
			Score:       res.Summary.Score,
			Clarity:     res.Summary.Clarity,
			Naturalness: res.Summary.Naturalness,
			Excerpt:     res.Summary.Excerpt,
		})
		p.metrics.LogSinkDuration.Record(ctx, time.Since(start).Seconds())
		if sinkErr != nil {
			p.metrics.RecordProviderError(ctx, "sheets", "append")
			log.Warn("log sink append failed", "error", sinkErr)
			res.Warnings = append(res.Warnings, "スプレッドシートへの記録に失敗しました。")
		}
	}

	// 6. Archive. Best-effort.
	if p.store != nil {
		if saveErr := p.store.Save(ctx, &archive.Entry{
			SessionID:   req.SessionID,
			LearnerName: req.LearnerName,
			Nationality: req.Nationality,
			Transcript:  res.Transcript,
			Report:      res.Report,
			Score:       res.Summary.Score,
			Clarity:     res.Summary.Clarity,
			Naturalness: res.Summary.Naturalness,
			CreatedAt:   res.CreatedAt,
		}); saveErr != nil {
			log.Warn("session archive failed", "error", saveErr)
			res.Warnings = append(res.Warnings, "セッションの保存に失敗しました。")
		}
	}

	res.ArtifactName = ArtifactName(res.CreatedAt, req.LearnerName)
	res.Artifact = BuildArtifact(res.CreatedAt, req.LearnerName, res.Transcript, res.Detail, res.AltSpread, res.Report)

	p.metrics.RecordAnalysis(ctx, "ok")
	p.report(req.SessionID, "done")
	log.Info("analysis completed",
		"score", res.Summary.Score,
		"words", len(res.Words),
	)
	return res, nil
}
