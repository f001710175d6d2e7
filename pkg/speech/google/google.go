// Package google implements speech.Recognizer using the Google Cloud
// Speech-to-Text long-running recognition API.
//
// Recognition requests are submitted through LongRunningRecognize and the
// provider blocks on the operation until completion or the configured
// timeout. Word confidence and word time offsets are always requested so the
// pipeline can flag low-confidence words and drive click-to-seek playback.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hatsuonlab/hatsuon/pkg/speech"
)

// Compile-time assertion that Recognizer implements speech.Recognizer.
var _ speech.Recognizer = (*Recognizer)(nil)

// Option is a functional option for configuring a Recognizer.
type Option func(*Recognizer)

// WithEndpoint overrides the service endpoint. Primarily used in tests to
// point at a local mock server.
func WithEndpoint(endpoint string) Option {
	return func(r *Recognizer) {
		r.clientOpts = append(r.clientOpts, option.WithEndpoint(endpoint))
	}
}

// Recognizer calls the Google Cloud Speech-to-Text API. A fresh API client is
// created per request and closed when the request finishes; analyses are rare
// and long-lived enough that connection reuse buys nothing.
type Recognizer struct {
	clientOpts []option.ClientOption
}

// New creates a Recognizer authenticated with the given service-account JSON.
// When credentialsJSON is empty the client library falls back to
// GOOGLE_APPLICATION_CREDENTIALS.
func New(credentialsJSON []byte, opts ...Option) *Recognizer {
	r := &Recognizer{}
	if len(credentialsJSON) > 0 {
		r.clientOpts = append(r.clientOpts, option.WithCredentialsJSON(credentialsJSON))
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewFromFile creates a Recognizer authenticated with a service-account key
// file on disk.
func NewFromFile(path string, opts ...Option) *Recognizer {
	r := &Recognizer{}
	if path != "" {
		r.clientOpts = append(r.clientOpts, option.WithCredentialsFile(path))
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Recognize implements speech.Recognizer. It blocks until the long-running
// operation completes or cfg.Timeout (default 600 s) elapses.
func (r *Recognizer) Recognize(ctx context.Context, audio []byte, cfg speech.Config) (*speech.Transcription, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = speech.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := speechapi.NewClient(ctx, r.clientOpts...)
	if err != nil {
		// Client construction fails on unreadable or malformed credentials.
		return nil, fmt.Errorf("%w: %v", speech.ErrAuth, err)
	}
	defer client.Close()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: buildRecognitionConfig(cfg),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}

	op, err := client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, classify(err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.GetResults()) == 0 {
		return nil, speech.ErrNoSpeech
	}
	return assemble(resp), nil
}

// buildRecognitionConfig maps the request config onto the wire configuration.
// Word confidence and time offsets are always enabled.
func buildRecognitionConfig(cfg speech.Config) *speechpb.RecognitionConfig {
	maxAlts := cfg.MaxAlternatives
	if maxAlts < 1 {
		maxAlts = 1
	}
	if maxAlts > 5 {
		maxAlts = 5
	}
	return &speechpb.RecognitionConfig{
		Encoding:                   encodingFor(cfg.Encoding),
		SampleRateHertz:            int32(cfg.SampleRateHertz),
		LanguageCode:               cfg.Language,
		MaxAlternatives:            int32(maxAlts),
		EnableAutomaticPunctuation: cfg.Punctuation,
		EnableWordConfidence:       true,
		EnableWordTimeOffsets:      true,
	}
}

// encodingFor maps a codec name to the wire enum. Unknown or empty names map
// to ENCODING_UNSPECIFIED, letting the service detect the format where it can.
func encodingFor(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(name) {
	case "mp3":
		return speechpb.RecognitionConfig_MP3
	case "linear16", "wav":
		return speechpb.RecognitionConfig_LINEAR16
	case "flac":
		return speechpb.RecognitionConfig_FLAC
	case "ogg_opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// assemble concatenates every segment's top alternative in order and collects
// word details and non-top alternatives. No reordering, no merging heuristics.
func assemble(resp *speechpb.LongRunningRecognizeResponse) *speech.Transcription {
	var (
		transcript   strings.Builder
		words        []speech.Word
		alternatives []string
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		top := alts[0]
		transcript.WriteString(top.GetTranscript())
		for _, w := range top.GetWords() {
			words = append(words, speech.Word{
				Text:       w.GetWord(),
				Confidence: float64(w.GetConfidence()),
				Start:      w.GetStartTime().AsDuration(),
			})
		}
		for _, alt := range alts[1:] {
			if t := alt.GetTranscript(); t != "" {
				alternatives = append(alternatives, t)
			}
		}
	}
	return &speech.Transcription{
		Transcript:   transcript.String(),
		Words:        words,
		Alternatives: alternatives,
	}
}

// classify maps a service error onto the package error taxonomy.
func classify(err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %v", speech.ErrAuth, err)
	case codes.DeadlineExceeded:
		return fmt.Errorf("speech: recognition timed out: %w", err)
	default:
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("speech: recognition timed out: %w", err)
		}
		return fmt.Errorf("speech: recognition failed: %w", err)
	}
}
