package toolpolicy

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts prompt tokens.
type TokenCounter interface {
	CountTokens(text string) int
}

// TokenCounterFunc adapts a function to TokenCounter.
type TokenCounterFunc func(string) int

func (f TokenCounterFunc) CountTokens(text string) int { return f(text) }

// TiktokenCounter counts with the cl100k_base encoding, loaded on first use.
// When the encoding cannot be loaded it falls back to EstimateTokens.
type TiktokenCounter struct {
	once     sync.Once
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter returns a lazily initialized counter.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) load() {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.encoding = enc
		}
	})
}

// CountTokens implements TokenCounter.
func (c *TiktokenCounter) CountTokens(text string) int {
	c.load()
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return EstimateTokens(text)
}

// EstimateTokens returns max(runes/4, word count), at least 1 for non-blank text.
func EstimateTokens(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	runes := len([]rune(trimmed))
	words := len(strings.Fields(trimmed))
	estimate := runes / 4
	if estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
