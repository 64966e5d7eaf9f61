package providers

import "strings"

// Known model capability tables. Unknown ids fall through to permissive
// heuristics rather than failing closed, so a freshly released model remains
// usable before the tables catch up.

var visionModels = map[string]bool{
	"gpt-4o":                   true,
	"gpt-4o-mini":              true,
	"gpt-4-turbo":              true,
	"gpt-4.1":                  true,
	"claude-3-opus-20240229":   true,
	"claude-3-sonnet-20240229": true,
	"claude-3-haiku-20240307":  true,
	"claude-3-5-sonnet-latest": true,
	"llava":                    true,
}

var noToolUseModels = map[string]bool{
	"gpt-3.5-turbo-instruct": true,
	"text-davinci-003":       true,
}

var reasoningModels = map[string]bool{
	"deepseek-reasoner": true,
	"qwq":               true,
}

// SupportsVision reports whether modelID accepts image inputs.
func SupportsVision(modelID string) bool {
	m := normalizeModelID(modelID)
	if visionModels[m] {
		return true
	}
	return strings.Contains(m, "vision") ||
		strings.Contains(m, "-vl") ||
		strings.HasPrefix(m, "gpt-4o") ||
		strings.HasPrefix(m, "gpt-5") ||
		strings.HasPrefix(m, "claude-3") ||
		strings.HasPrefix(m, "claude-4")
}

// SupportsToolUse reports whether modelID can handle tool definitions.
// Almost every current chat model can, so the default is permissive.
func SupportsToolUse(modelID string) bool {
	m := normalizeModelID(modelID)
	return !noToolUseModels[m]
}

// SupportsReasoning reports whether modelID emits a reasoning/thinking
// segment that should be split out of the visible stream.
func SupportsReasoning(modelID string) bool {
	m := normalizeModelID(modelID)
	if reasoningModels[m] {
		return true
	}
	return strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") ||
		strings.HasPrefix(m, "gpt-5") ||
		strings.Contains(m, "-r1") ||
		strings.Contains(m, "reason") ||
		strings.Contains(m, "think")
}

func normalizeModelID(modelID string) string {
	m := strings.ToLower(strings.TrimSpace(modelID))
	// ollama-style tags: "deepseek-r1:14b" -> "deepseek-r1"
	if idx := strings.IndexByte(m, ':'); idx > 0 {
		m = m[:idx]
	}
	return m
}
