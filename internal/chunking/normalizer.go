// Package chunking converts raw spoken-word transcripts into bounded,
// metadata-enriched retrieval chunks. The stages run in a fixed order:
// normalizer, recursive splitter, size enforcer, optional semantic
// refiner, optional hierarchy builder, assembler.
package chunking

import (
	"regexp"
	"strings"
)

// Normalizer strips transcript noise before splitting: stray characters,
// whitespace runs, transcription stutter, and spoken intro/outro
// boilerplate. Normalization is idempotent.
type Normalizer struct {
	allowed  *regexp.Regexp
	spaces   *regexp.Regexp
	newlines *regexp.Regexp
	intros   []*regexp.Regexp
	outros   []*regexp.Regexp
}

// NewNormalizer creates a normalizer with the built-in intro/outro
// patterns for coaching video transcripts.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		allowed:  regexp.MustCompile(`[^a-zA-Z0-9 \n.,!?'"()\-:;%$&/]+`),
		spaces:   regexp.MustCompile(`[ \t]+`),
		newlines: regexp.MustCompile(`\n{3,}`),
		intros: []*regexp.Regexp{
			regexp.MustCompile(`(?i)^welcome back[^.!?\n]*[.!?]?\s*`),
			regexp.MustCompile(`(?i)^(hey guys|hey everyone|what's up everybody)[,!]?[^.!?\n]*[.!?]?\s*`),
			regexp.MustCompile(`(?i)^(so )?today,? i'?m (going to|gonna)[^.!?\n]*[.!?]?\s*`),
			regexp.MustCompile(`(?i)^in this video[^.!?\n]*[.!?]?\s*`),
		},
		outros: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\s*thanks for watching[^.!?]*[.!?]?$`),
			regexp.MustCompile(`(?i)\s*(don'?t forget to |please |make sure (you |to )?)?(like,? (and )?)?(hit )?subscribe[^.!?]*[.!?]?$`),
			regexp.MustCompile(`(?i)\s*see you in the next (video|one)[^.!?]*[.!?]?$`),
		},
	}
}

// Normalize returns the cleaned transcript text. It always returns a
// string; pure-noise input yields the empty string.
func (n *Normalizer) Normalize(text string) string {
	text = n.allowed.ReplaceAllString(text, " ")
	text = n.spaces.ReplaceAllString(text, " ")
	text = n.trimLines(text)
	text = n.newlines.ReplaceAllString(text, "\n\n")
	text = n.collapseStutter(text)
	text = stripToFixpoint(text, n.intros)
	text = stripToFixpoint(text, n.outros)
	return strings.TrimSpace(text)
}

// stripToFixpoint applies the anchored patterns until none of them
// matches, so stacked boilerplate ("Welcome back. Welcome back.") cannot
// survive a single Normalize call and normalization stays idempotent.
func stripToFixpoint(text string, patterns []*regexp.Regexp) string {
	for {
		before := text
		for _, re := range patterns {
			text = strings.TrimSpace(re.ReplaceAllString(text, ""))
		}
		if text == before {
			return text
		}
	}
}

func (n *Normalizer) trimLines(text string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "\n")
}

// collapseStutter reduces an immediate triple-or-more repetition of the
// same word to a single occurrence. Double repetition is left alone: it
// is often legitimate emphasis ("very very important").
func (n *Normalizer) collapseStutter(text string) string {
	lines := strings.Split(text, "\n")
	for li, line := range lines {
		words := strings.Split(line, " ")
		if len(words) < 3 {
			continue
		}
		out := words[:0]
		i := 0
		for i < len(words) {
			j := i + 1
			for j < len(words) && strings.EqualFold(words[j], words[i]) {
				j++
			}
			if j-i >= 3 {
				out = append(out, words[i])
			} else {
				out = append(out, words[i:j]...)
			}
			i = j
		}
		lines[li] = strings.Join(out, " ")
	}
	return strings.Join(lines, "\n")
}
