package claude

import "context"

// The Anthropic API exposes no model listing endpoint, so the picker works
// off a static catalogue.
var knownModels = []string{
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

func (e *Engine) ListModels(_ context.Context) []string {
	return knownModels
}
