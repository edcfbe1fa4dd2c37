package model

// Component kinds.
const (
	ComponentRuntime = "runtime"
	ComponentContent = "content"
)

// Component identifies the caller of a message: a popup or dashboard view
// (runtime) or a content script bound to one tab.
type Component struct {
	ID    string `json:"id"`
	Kind  string `json:"kind"`
	TabID int    `json:"tabId,omitempty"`
	URL   string `json:"url,omitempty"`
}

// ValidComponentKind reports whether kind names a known component kind.
func ValidComponentKind(kind string) bool {
	return kind == ComponentRuntime || kind == ComponentContent
}
