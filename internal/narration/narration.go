// Package narration holds text helpers shared by synthesis and linting:
// normalisation, sentence splitting, chunking for TTS request limits and a
// words-per-minute estimate of spoken length.
package narration

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
)

func sentenceTokenizer() *sentences.DefaultSentenceTokenizer {
	tokenizerOnce.Do(func() {
		tok, err := english.NewSentenceTokenizer(nil)
		if err == nil {
			tokenizer = tok
		}
	})
	return tokenizer
}

// Normalize composes Unicode to NFC and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Sentences splits normalised text into trimmed sentences.
func Sentences(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	tok := sentenceTokenizer()
	if tok == nil {
		return []string{text}
	}
	var out []string
	for _, sentence := range tok.Tokenize(text) {
		if trimmed := strings.TrimSpace(sentence.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// Words counts whitespace-separated words.
func Words(text string) int {
	return len(strings.Fields(text))
}

// EstimateSeconds estimates how long text takes to read aloud at wpm.
func EstimateSeconds(text string, wpm int) float64 {
	if wpm <= 0 {
		return 0
	}
	return float64(Words(text)) * 60 / float64(wpm)
}

// Chunk groups sentences into pieces of at most maxChars characters. A single
// sentence longer than maxChars is split between words; a single word longer
// than maxChars becomes its own chunk.
func Chunk(text string, maxChars int) []string {
	parts := Sentences(text)
	if maxChars <= 0 || len(parts) == 0 {
		return parts
	}
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	add := func(piece string) {
		if current.Len() > 0 && current.Len()+1+len(piece) > maxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}
	for _, sentence := range parts {
		if len(sentence) <= maxChars {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			add(word)
		}
	}
	flush()
	return chunks
}

// DisplayTitle title-cases a chapter or scene title for console output.
func DisplayTitle(title string) string {
	return cases.Title(language.English).String(Normalize(title))
}
