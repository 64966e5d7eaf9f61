package openai

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// fallback list used when GET /models is unreachable, so model pickers stay
// usable offline or behind restrictive proxies.
var fallbackModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
	"o3-mini",
}

// ListModels queries GET {baseURL}/models and degrades to a static list on
// any failure, never raising to the caller.
func (e *Engine) ListModels(ctx context.Context) []string {
	client, err := MakeClient(e.settings.API, e.settings.Client)
	if err != nil {
		log.Debug().Err(err).Msg("openai model listing unavailable, using fallback list")
		return fallbackModels
	}

	list, err := client.ListModels(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("openai model listing failed, using fallback list")
		return fallbackModels
	}

	ret := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		// skip non-chat artifacts that clutter the picker
		if strings.Contains(m.ID, "embedding") ||
			strings.Contains(m.ID, "whisper") ||
			strings.Contains(m.ID, "tts") {
			continue
		}
		ret = append(ret, m.ID)
	}
	if len(ret) == 0 {
		return fallbackModels
	}
	sort.Strings(ret)
	return ret
}
