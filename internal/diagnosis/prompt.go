// Package diagnosis implements the pronunciation-diagnosis pipeline: prompt
// assembly, report generation with model fallback, summary extraction, and
// the downloadable session artifact.
package diagnosis

import (
	"fmt"
	"strings"
)

// PromptInput carries everything the prompt template interpolates.
type PromptInput struct {
	// LearnerName is the learner's name; empty means anonymous.
	LearnerName string

	// Nationality is the learner's nationality; empty means unknown.
	Nationality string

	// Transcript is the recognized Japanese text.
	Transcript string

	// Detail is the formatted per-word confidence/timestamp block.
	Detail string

	// AltSpread describes how much the alternative transcripts diverge.
	AltSpread string
}

// BuildPrompt is a pure function assembling the instruction sent to the
// generative model. It branches only on the presence of the learner's name
// and nationality; the rest of the template is fixed. The template dictates
// the exact output labels the summary extractor later matches.
func BuildPrompt(in PromptInput) string {
	var nameInstruction string
	if in.LearnerName != "" {
		nameInstruction = fmt.Sprintf(
			"学習者名は「%s」です。レポートの冒頭を「%sさんの発音診断カルテ」とし、文中でも必要に応じて名前で呼んでください。",
			in.LearnerName, in.LearnerName)
	} else {
		nameInstruction = "学習者名は不明です。レポートの冒頭は単に「発音診断カルテ」とし、特定の個人名を出さずに作成してください。"
	}

	var nationalityInstruction string
	if in.Nationality != "" {
		nationalityInstruction = fmt.Sprintf(
			"学習者の国籍は「%s」です。母語の干渉として典型的な発音傾向があれば指摘に活かしてください。",
			in.Nationality)
	} else {
		nationalityInstruction = "学習者の国籍は不明です。特定の母語を前提にしないでください。"
	}

	var b strings.Builder
	b.WriteString("あなたは日本語の発音指導を専門とするベテラン講師です。\n")
	b.WriteString("以下の音声認識結果をもとに、学習者向けの発音診断カルテを作成してください。\n\n")
	b.WriteString(nameInstruction)
	b.WriteString("\n")
	b.WriteString(nationalityInstruction)
	b.WriteString("\n\n")

	b.WriteString("【音声認識結果】\n")
	b.WriteString(in.Transcript)
	b.WriteString("\n\n【単語ごとの信頼度と出現時刻】\n")
	b.WriteString(in.Detail)
	if in.AltSpread != "" {
		b.WriteString("\n\n【認識候補の揺れ】\n")
		b.WriteString(in.AltSpread)
	}

	b.WriteString(`

信頼度が低い単語（⚠マーク付き）は発音が不明瞭だった可能性が高い箇所です。

カルテには必ず以下の項目を、この書式のまま含めてください:
1. **総合音声スコア**： NN / 100 （NNは0〜100の整数）
2. **明瞭度**： S / A / B / C のいずれか1文字
3. **自然さ**： S / A / B / C のいずれか1文字
4. ## 総評 （3〜5文で全体の印象をまとめる）
5. ## 最優先指導ポイント （具体的な練習方法を2〜3点）
`)
	return b.String()
}
