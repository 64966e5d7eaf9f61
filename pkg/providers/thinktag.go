package providers

import "strings"

// ThinkTagExtractor splits a streamed completion into visible text and
// reasoning text delimited by <tag>...</tag> pairs (default tag "think",
// used by backends that inline reasoning in the content stream).
//
// Chunk boundaries never align with tag boundaries: a tag can arrive split
// across any number of deltas. The extractor holds back the smallest
// possible tail that could still turn into a tag, so surrounding visible
// text keeps its ordering and is never corrupted.
type ThinkTagExtractor struct {
	open  string
	close string

	inside bool
	buf    strings.Builder
}

func NewThinkTagExtractor(tag string) *ThinkTagExtractor {
	if tag == "" {
		tag = "think"
	}
	return &ThinkTagExtractor{
		open:  "<" + tag + ">",
		close: "</" + tag + ">",
	}
}

// Feed consumes one delta and returns the visible and thinking text that can
// be safely emitted so far.
func (e *ThinkTagExtractor) Feed(delta string) (visible string, thinking string) {
	e.buf.WriteString(delta)
	data := e.buf.String()
	e.buf.Reset()

	var vis, think strings.Builder
	for len(data) > 0 {
		marker := e.open
		out := &vis
		if e.inside {
			marker = e.close
			out = &think
		}

		idx := strings.Index(data, marker)
		if idx >= 0 {
			out.WriteString(data[:idx])
			data = data[idx+len(marker):]
			e.inside = !e.inside
			continue
		}

		// no full marker; hold back a tail that is a prefix of the marker
		keep := partialMarkerStart(data, marker)
		out.WriteString(data[:keep])
		e.buf.WriteString(data[keep:])
		break
	}
	return vis.String(), think.String()
}

// Flush returns whatever is still held back at end of stream. An
// unterminated reasoning segment stays reasoning; a dangling partial tag in
// visible text is emitted as-is.
func (e *ThinkTagExtractor) Flush() (visible string, thinking string) {
	rest := e.buf.String()
	e.buf.Reset()
	if e.inside {
		return "", rest
	}
	return rest, ""
}

// partialMarkerStart returns the index in data where a proper prefix of
// marker begins as a suffix of data, or len(data) when there is none.
func partialMarkerStart(data string, marker string) int {
	max := len(marker) - 1
	if max > len(data) {
		max = len(data)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(data, marker[:n]) {
			return len(data) - n
		}
	}
	return len(data)
}
