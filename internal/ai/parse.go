package ai

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxAnswerRunes = 600

var (
	blankLines     = regexp.MustCompile(`\n{3,}`)
	ErrEmptyAnswer = errors.New("empty_answer")
)

// CleanAnswer trims model output, collapses runs of blank lines and caps the length.
func CleanAnswer(text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	text = blankLines.ReplaceAllString(text, "\n\n")
	if text == "" {
		return "", ErrEmptyAnswer
	}
	if utf8.RuneCountInString(text) > maxAnswerRunes {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxAnswerRunes])) + "…"
	}
	return text, nil
}
