package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"

	"github.com/hatsuonlab/hatsuon/internal/diagnosis"
	"github.com/hatsuonlab/hatsuon/internal/observe"
	"github.com/hatsuonlab/hatsuon/pkg/speech"
)

// sessionIDRe matches the xid session IDs handed out by /api/session.
var sessionIDRe = regexp.MustCompile(`^[0-9a-v]{20}$`)

// extRe limits which upload filename extensions are carried onto the temp
// file, as a hint for ffmpeg's container detection.
var extRe = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// uploadExt returns the client filename's extension when it is a plain
// alphanumeric suffix, and the empty string for anything else.
func uploadExt(name string) string {
	if ext := filepath.Ext(name); extRe.MatchString(ext) {
		return ext
	}
	return ""
}

// wordJSON is the wire form of one recognized word.
type wordJSON struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Start      float64 `json:"start_seconds"`
	LowConf    bool    `json:"low_confidence"`
}

// summaryJSON is the wire form of the extracted report summary.
type summaryJSON struct {
	Score       string `json:"score"`
	Clarity     string `json:"clarity"`
	Naturalness string `json:"naturalness"`
	Excerpt     string `json:"excerpt"`
}

// analyzeResponse is the wire form of a completed analysis.
type analyzeResponse struct {
	SessionID    string      `json:"session_id"`
	Transcript   string      `json:"transcript"`
	Words        []wordJSON  `json:"words"`
	Detail       string      `json:"detail"`
	AltSpread    string      `json:"alt_spread,omitempty"`
	Report       string      `json:"report"`
	Summary      summaryJSON `json:"summary"`
	Warnings     []string    `json:"warnings,omitempty"`
	ArtifactName string      `json:"artifact_name"`
	Artifact     string      `json:"artifact"`
}

func (s *Server) handleNewSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session_id": xid.New().String()})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "音声ファイルを選択するか、録音してください。"})
		return
	}
	if file.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "音声ファイルが大きすぎます。"})
		return
	}

	// The session ID comes from the client; accept only the xid format
	// handed out by /api/session and mint a fresh one otherwise. It is used
	// as a hub key and archive key, never as a path element.
	sessionID := c.PostForm("session_id")
	if !sessionIDRe.MatchString(sessionID) {
		sessionID = xid.New().String()
	}

	tmp, err := os.CreateTemp("", "hatsuon-upload-*"+uploadExt(file.Filename))
	if err != nil {
		observe.Logger(c.Request.Context()).Error("create upload file failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "アップロードの保存に失敗しました。"})
		return
	}
	upload := tmp.Name()
	tmp.Close()
	defer os.Remove(upload)

	if err := c.SaveUploadedFile(file, upload); err != nil {
		observe.Logger(c.Request.Context()).Error("save upload failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "アップロードの保存に失敗しました。"})
		return
	}

	res, err := s.cfg.Analyzer.Analyze(c.Request.Context(), diagnosis.Request{
		SessionID:   sessionID,
		LearnerName: c.PostForm("learner_name"),
		Nationality: c.PostForm("nationality"),
		AudioPath:   upload,
	})
	if err != nil {
		status, msg := classifyAnalysisError(err)
		c.JSON(status, gin.H{"error": msg, "session_id": sessionID})
		return
	}

	words := make([]wordJSON, len(res.Words))
	for i, w := range res.Words {
		words[i] = wordJSON{
			Text:       w.Text,
			Confidence: w.Confidence,
			Start:      w.Start.Seconds(),
			LowConf:    w.Confidence < speech.LowConfidence,
		}
	}

	c.JSON(http.StatusOK, analyzeResponse{
		SessionID:  res.SessionID,
		Transcript: res.Transcript,
		Words:      words,
		Detail:     res.Detail,
		AltSpread:  res.AltSpread,
		Report:     res.Report,
		Summary: summaryJSON{
			Score:       res.Summary.Score,
			Clarity:     res.Summary.Clarity,
			Naturalness: res.Summary.Naturalness,
			Excerpt:     res.Summary.Excerpt,
		},
		Warnings:     res.Warnings,
		ArtifactName: res.ArtifactName,
		Artifact:     res.Artifact,
	})
}

// classifyAnalysisError maps pipeline failures to HTTP status codes and the
// short inline messages the UI shows.
func classifyAnalysisError(err error) (int, string) {
	switch {
	case errors.Is(err, diagnosis.ErrConversion):
		return http.StatusUnprocessableEntity, "音声の変換に失敗しました。対応している形式のファイルか確認してください。"
	case errors.Is(err, speech.ErrNoSpeech):
		return http.StatusUnprocessableEntity, "音声を認識できませんでした。無音や雑音のみの可能性があります。"
	case errors.Is(err, speech.ErrAuth):
		return http.StatusBadGateway, "音声認識サービスの認証に失敗しました。管理者に連絡してください。"
	default:
		return http.StatusBadGateway, "音声認識に失敗しました: " + err.Error()
	}
}

// handleProgress streams the analysis stage names for one session over a
// websocket. The connection closes after the "done" event.
func (s *Server) handleProgress(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		observe.Logger(c.Request.Context()).Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := s.cfg.Hub.Subscribe(sessionID)
	defer cancel()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case stage, ok := <-events:
			if !ok {
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(stage)); err != nil {
				return
			}
			if stage == "done" {
				conn.Close(websocket.StatusNormalClosure, "analysis complete")
				return
			}
		}
	}
}

// sessionJSON is the wire form of one archived session.
type sessionJSON struct {
	SessionID   string    `json:"session_id"`
	LearnerName string    `json:"learner_name"`
	Nationality string    `json:"nationality"`
	Transcript  string    `json:"transcript"`
	Score       string    `json:"score"`
	Clarity     string    `json:"clarity"`
	Naturalness string    `json:"naturalness"`
	CreatedAt   time.Time `json:"created_at"`
}

// handleListSessions returns the archived sessions for the admin view. It is
// disabled unless both an admin password and an archive store are configured.
func (s *Server) handleListSessions(c *gin.Context) {
	if s.cfg.AdminPassword == "" || s.cfg.Store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session archive is not configured"})
		return
	}
	if c.GetHeader("X-Admin-Password") != s.cfg.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin password"})
		return
	}

	entries, err := s.cfg.Store.List(c.Request.Context(), 0)
	if err != nil {
		observe.Logger(c.Request.Context()).Error("session list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}

	out := make([]sessionJSON, len(entries))
	for i, e := range entries {
		out[i] = sessionJSON{
			SessionID:   e.SessionID,
			LearnerName: e.LearnerName,
			Nationality: e.Nationality,
			Transcript:  e.Transcript,
			Score:       e.Score,
			Clarity:     e.Clarity,
			Naturalness: e.Naturalness,
			CreatedAt:   e.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}
