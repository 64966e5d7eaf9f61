package conversation

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

var (
	fallbackCodecOnce sync.Once
	fallbackCodec     tokenizer.Codec
)

func codecForModel(model string) tokenizer.Codec {
	if model != "" {
		if c, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
			return c
		}
	}
	fallbackCodecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err != nil {
			log.Warn().Err(err).Msg("could not load fallback tokenizer codec")
			return
		}
		fallbackCodec = c
	})
	return fallbackCodec
}

// WordCount returns the number of whitespace-separated words in the visible
// content. The count is computed on first read and cached until the content
// changes; while a generation is streaming the count is recomputed each call
// and not cached.
func (m *Message) WordCount() int {
	if !m.Generating && m.wordCount != nil {
		return *m.wordCount
	}
	n := len(strings.Fields(m.Content))
	if !m.Generating {
		m.wordCount = &n
	}
	return n
}

// TokenCount returns the tokenizer token count of the visible content for
// the given model, lazily cached like WordCount. When no codec is available
// a rough bytes/4 estimate is used so callers always get a usable number.
func (m *Message) TokenCount(model string) int {
	if !m.Generating && m.tokenCount != nil {
		return *m.tokenCount
	}
	n := countTokens(m.Content, model)
	if !m.Generating {
		m.tokenCount = &n
	}
	return n
}

func countTokens(text string, model string) int {
	if text == "" {
		return 0
	}
	codec := codecForModel(model)
	if codec == nil {
		return len(text) / 4
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		log.Debug().Err(err).Msg("token encode failed, falling back to estimate")
		return len(text) / 4
	}
	return len(ids)
}
