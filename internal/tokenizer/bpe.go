package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	cl100kBase = "cl100k_base"
	o200kBase  = "o200k_base"
)

func init() {
	// Vocabularies come from the embedded loader; the server never downloads them.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter counts tokens exactly for OpenAI model families and falls back to
// the estimator for everything else.
type Counter struct {
	Fallback Estimator

	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// New returns a Counter with the default estimator as fallback.
func New() *Counter {
	return &Counter{encodings: map[string]*tiktoken.Tiktoken{}}
}

// encodingName maps a model hint to its BPE vocabulary, or "" when the hint
// is not an OpenAI model.
func encodingName(hint string) string {
	switch {
	case strings.HasPrefix(hint, "gpt-4o"), strings.HasPrefix(hint, "o1"), strings.HasPrefix(hint, "o3"):
		return o200kBase
	case strings.HasPrefix(hint, "gpt-"):
		return cl100kBase
	}
	return ""
}

// Count returns the number of tokens of text for modelHint.
func (c *Counter) Count(text, modelHint string) int {
	if text == "" {
		return 0
	}
	enc := c.encoding(strings.ToLower(modelHint))
	if enc == nil {
		return c.Fallback.Count(text, modelHint)
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *Counter) encoding(hint string) *tiktoken.Tiktoken {
	name := encodingName(hint)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil && name != cl100kBase {
		enc, err = tiktoken.GetEncoding(cl100kBase)
	}
	if err != nil {
		enc = nil
	}
	c.encodings[name] = enc
	return enc
}
