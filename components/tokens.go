package components

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter defines the interface for counting tokens in a string.
type TokenCounter interface {
	Count(text string) int
}

// WordCounter approximates token counts by splitting on whitespace.
type WordCounter struct{}

// Count returns the number of words in the text
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TikTokenCounter counts tokens with the tiktoken encodings used by OpenAI models.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTokenCounter returns a tiktoken counter for encoding (e.g. "cl100k_base").
// Encodings are fetched lazily by tiktoken, when that fails a WordCounter is returned.
func NewTokenCounter(encoding string) TokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return WordCounter{}
	}
	return &TikTokenCounter{tke: tke}
}

// Count returns the exact number of tokens in the text
func (c *TikTokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}
