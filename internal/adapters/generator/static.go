package generator

// static.go — generador de preguntas sin red.
//
// Deriva la pregunta binaria, el resumen, el transcript y los tags de la
// narración con reglas simples. Cuando no encuentra una meta formulable
// devuelve ErrNoQuestion y el caller usa domain.FallbackDraft.

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/alejandrodnm/castlot/internal/domain"
)

// ErrNoQuestion indica que la narración no contiene una meta reconocible.
var ErrNoQuestion = errors.New("generator: no goal found in narration")

const (
	maxSummaryLen = 200
	maxTags       = 4
	wordsPerSec   = 2.5 // ~150 palabras por minuto hablando
)

var keywords = map[string][]string{
	domain.CategoryCareer:        {"job", "internship", "offer", "interview", "promotion", "boss", "startup", "salary", "career", "hired"},
	domain.CategoryRelationships: {"girlfriend", "boyfriend", "partner", "date", "dating", "friend", "marry", "wedding", "breakup", "crush"},
	domain.CategoryHabits:        {"gym", "run", "running", "marathon", "diet", "sleep", "meditate", "smoking", "workout", "habit"},
	domain.CategoryAcademics:     {"exam", "class", "grade", "gpa", "thesis", "university", "school", "course", "finals", "admission"},
	domain.CategoryPurchases:     {"buy", "car", "house", "apartment", "iphone", "laptop", "bike", "purchase", "rent", "save"},
}

var goalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwill i ([^.?!]+)\?`),
	regexp.MustCompile(`(?i)\bi(?: really)? (?:want|hope|plan|need|am going|'m going) to ([^.?!,]+)`),
	regexp.MustCompile(`(?i)\bmy goal is to ([^.?!,]+)`),
}

var sentenceEnd = regexp.MustCompile(`[^.?!]+[.?!]*`)

// Static implementa ports.QuestionGenerator sin dependencias externas.
type Static struct {
	fallbackCategory string
}

// NewStatic crea el generador. fallbackCategory se usa cuando ninguna
// palabra clave coincide.
func NewStatic(fallbackCategory string) *Static {
	return &Static{fallbackCategory: domain.NormalizeCategory(fallbackCategory, domain.CategoryCareer)}
}

// Generate convierte la narración en un draft de mercado.
func (g *Static) Generate(ctx context.Context, narration string) (domain.MarketDraft, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketDraft{}, err
	}
	narration = strings.TrimSpace(narration)
	if narration == "" {
		return domain.MarketDraft{}, fmt.Errorf("generator.Generate: empty narration: %w", ErrNoQuestion)
	}

	question, ok := extractQuestion(narration)
	if !ok {
		return domain.MarketDraft{}, fmt.Errorf("generator.Generate: %w", ErrNoQuestion)
	}

	category, tags := classify(narration, g.fallbackCategory)
	sentences := splitSentences(narration)

	return domain.MarketDraft{
		Question:   question,
		Summary:    summarize(sentences),
		Transcript: transcript(sentences),
		Tags:       tags,
		Category:   category,
	}, nil
}

// extractQuestion busca la primera meta formulable como "Will I ...?".
func extractQuestion(narration string) (string, bool) {
	for _, re := range goalPatterns {
		m := re.FindStringSubmatch(narration)
		if m == nil {
			continue
		}
		goal := strings.TrimSpace(m[1])
		if goal == "" {
			continue
		}
		return "Will I " + goal + "?", true
	}
	return "", false
}

// classify elige la categoría con más palabras clave y devuelve esas palabras como tags.
func classify(narration, fallback string) (string, []string) {
	words := strings.FieldsFunc(strings.ToLower(narration), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		seen[w] = true
	}

	best, bestHits := fallback, 0
	var bestTags []string
	for _, cat := range domain.Categories() {
		var hits []string
		for _, kw := range keywords[cat] {
			if seen[kw] {
				hits = append(hits, kw)
			}
		}
		if len(hits) > bestHits {
			best, bestHits, bestTags = cat, len(hits), hits
		}
	}

	sort.Strings(bestTags)
	if len(bestTags) > maxTags {
		bestTags = bestTags[:maxTags]
	}
	return best, append([]string{best}, bestTags...)
}

func splitSentences(narration string) []string {
	var out []string
	for _, s := range sentenceEnd.FindAllString(narration, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// summarize toma frases completas hasta maxSummaryLen caracteres.
func summarize(sentences []string) string {
	var sb strings.Builder
	for _, s := range sentences {
		if sb.Len() > 0 && sb.Len()+1+len(s) > maxSummaryLen {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s)
	}
	summary := sb.String()
	if r := []rune(summary); len(r) > maxSummaryLen {
		summary = string(r[:maxSummaryLen]) + "..."
	}
	return summary
}

// transcript asigna a cada frase el timestamp en que empezaría a decirse.
func transcript(sentences []string) []domain.TranscriptSegment {
	segs := make([]domain.TranscriptSegment, 0, len(sentences))
	elapsed := 0.0
	for _, s := range sentences {
		sec := int(elapsed)
		segs = append(segs, domain.TranscriptSegment{
			Time: fmt.Sprintf("%d:%02d", sec/60, sec%60),
			Text: s,
		})
		elapsed += float64(len(strings.Fields(s))) / wordsPerSec
	}
	return segs
}
