package diagnosis

import (
	"fmt"
	"time"
)

// BuildArtifact flattens a completed session into the downloadable plain-text
// report.
func BuildArtifact(now time.Time, learnerName, transcript, detail, altSpread, report string) string {
	safeName := learnerName
	if safeName == "" {
		safeName = "student"
	}
	return fmt.Sprintf(`================================
日本語発音診断レポート
================================
■ 実施日: %s
■ 学習者名: %s

【音声認識結果】
%s

【詳細スコア (信頼度)】
%s

【認識候補の揺れ】
%s

--------------------------------
【AI講師による診断カルテ】
--------------------------------
%s
`, now.Format("2006-01-02"), safeName, transcript, detail, altSpread, report)
}

// ArtifactName returns the download filename, e.g. "ラオ・ミン_2026-08-23_report.txt".
// An empty learner name falls back to "student".
func ArtifactName(now time.Time, learnerName string) string {
	safeName := learnerName
	if safeName == "" {
		safeName = "student"
	}
	return fmt.Sprintf("%s_%s_report.txt", safeName, now.Format("2006-01-02"))
}
