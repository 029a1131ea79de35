package domain

import "strings"

// FallbackQuestion is used when the question generator cannot produce one.
const FallbackQuestion = "Will I achieve my goal?"

const (
	fallbackSummaryLen    = 200
	fallbackTranscriptLen = 80
)

// MarketDraft es lo que el generador de preguntas devuelve a partir de una
// narración libre: pregunta binaria, resumen anónimo, transcript y tags.
type MarketDraft struct {
	Question   string              `json:"question"`
	Summary    string              `json:"summary"`
	Transcript []TranscriptSegment `json:"transcript"`
	Tags       []string            `json:"tags"`
	Category   string              `json:"category"`
}

// FallbackDraft construye la estructura por defecto cuando el generador falla.
func FallbackDraft(narration, category string) MarketDraft {
	category = NormalizeCategory(category, CategoryCareer)
	return MarketDraft{
		Question:   FallbackQuestion,
		Summary:    prefix(narration, fallbackSummaryLen) + "...",
		Transcript: []TranscriptSegment{{Time: "0:00", Text: prefix(narration, fallbackTranscriptLen)}},
		Tags:       []string{category},
		Category:   category,
	}
}

// Complete rellena los campos vacíos del draft con los valores del fallback.
func (d MarketDraft) Complete(narration, category string) MarketDraft {
	fb := FallbackDraft(narration, category)
	if strings.TrimSpace(d.Question) == "" {
		d.Question = fb.Question
	}
	if strings.TrimSpace(d.Summary) == "" {
		d.Summary = fb.Summary
	}
	if len(d.Transcript) == 0 {
		d.Transcript = fb.Transcript
	}
	d.Category = NormalizeCategory(d.Category, fb.Category)
	if len(d.Tags) == 0 {
		d.Tags = []string{d.Category}
	}
	return d
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
