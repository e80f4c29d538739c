// Package tokens provides token counters used for all chunk size
// calculations. The thresholds in the chunking config are expressed in
// the unit produced by these counters, so one counter instance must be
// shared by every pipeline stage.
package tokens

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE vocabulary used when none is configured.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with an OpenAI BPE vocabulary.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named tiktoken encoding.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %q: %w", encoding, err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// WordCounter approximates one token per whitespace-separated word.
// It needs no vocabulary download, so it serves offline runs and tests.
type WordCounter struct{}

// NewWordCounter creates a word-based counter.
func NewWordCounter() *WordCounter { return &WordCounter{} }

// Count returns the number of whitespace-separated words in text.
func (c *WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
