package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLen limita el texto de un comentario (en runes).
const MaxCommentLen = 500

// Comment es la opinión de un usuario en el hilo de un mercado. Score son los
// votos de la comunidad; un comentario nuevo empieza en 0.
type Comment struct {
	ID        string
	MarketID  string
	UserID    string
	Text      string
	Score     int
	Seq       int64 // orden de publicación, asignado por el store
	CreatedAt time.Time
}

// NormalizeCommentText recorta espacios y valida longitud.
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyComment
	}
	if n := utf8.RuneCountInString(text); n > MaxCommentLen {
		return "", fmt.Errorf("%w: %d runes > %d", ErrCommentTooLong, n, MaxCommentLen)
	}
	return text, nil
}
