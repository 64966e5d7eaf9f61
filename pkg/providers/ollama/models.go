package ollama

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"
)

var fallbackModels = []string{
	"llama3",
	"llama2",
	"mistral",
	"codellama",
}

// ListModels queries the daemon's tag listing and degrades to a static list
// when the daemon is unreachable.
func (e *Engine) ListModels(ctx context.Context) []string {
	client, err := e.client()
	if err != nil {
		log.Debug().Err(err).Msg("ollama model listing unavailable, using fallback list")
		return fallbackModels
	}

	resp, err := client.List(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("ollama model listing failed, using fallback list")
		return fallbackModels
	}

	ret := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		ret = append(ret, m.Name)
	}
	if len(ret) == 0 {
		return fallbackModels
	}
	sort.Strings(ret)
	return ret
}
