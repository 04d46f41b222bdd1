package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// paragraphBreak matches a blank line, including any surrounding whitespace.
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)

	// whitespaceRun matches one or more whitespace characters.
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// ParagraphSeparator joins paragraphs in normalised text.
const ParagraphSeparator = "\n\n"

// Normalize returns the canonical form of text that chunking operates on:
//  1. Line endings become \n
//  2. Text is split into paragraphs on blank lines; each paragraph is trimmed
//     and empty paragraphs are dropped
//  3. If collapse is set, whitespace runs inside a paragraph become one space
//  4. Paragraphs are joined with a single blank line
func Normalize(text string, collapse bool) string {
	return strings.Join(Paragraphs(text, collapse), ParagraphSeparator)
}

// Paragraphs splits text into normalised, non-empty paragraphs.
func Paragraphs(text string, collapse bool) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	parts := paragraphBreak.Split(text, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		if collapse {
			p = whitespaceRun.ReplaceAllString(p, " ")
		}
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}
