package retrieval

import "strings"

// Passage is one retrieved text fragment plus whatever metadata the backing
// store attached to it.
type Passage struct {
	Text     string
	Metadata map[string]string
}

// UnknownSource is the display fallback when no metadata field names a source.
const UnknownSource = "Unknown Document"

// sourceExtractors is the fixed precedence over possible metadata fields.
// First non-empty result wins.
var sourceExtractors = []func(Passage) string{
	metadataField("source"),
	metadataField("fileName"),
	metadataField("pdf"),
	metadataField("file"),
}

func metadataField(key string) func(Passage) string {
	return func(p Passage) string {
		return strings.TrimSpace(p.Metadata[key])
	}
}

func extractSource(p Passage) string {
	for _, extract := range sourceExtractors {
		if name := extract(p); name != "" {
			return name
		}
	}
	return ""
}

// SourceName returns the passage's source for display contexts; passages
// without any source field get the UnknownSource sentinel.
func SourceName(p Passage) string {
	if name := extractSource(p); name != "" {
		return name
	}
	return UnknownSource
}

// CollectSources builds the deduplicated source list in retrieval order.
// Passages without a source are skipped, not replaced by a sentinel.
func CollectSources(passages []Passage) []string {
	seen := make(map[string]struct{}, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		name := extractSource(p)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, name)
	}
	return sources
}

// JoinContext renders all passages in retrieval order, blank-line separated,
// each labeled with its display source (the UnknownSource sentinel when none
// is known). Shared sources do not collapse here: every passage contributes.
func JoinContext(passages []Passage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, "["+SourceName(p)+"]\n"+p.Text)
	}
	return strings.Join(texts, "\n\n")
}
