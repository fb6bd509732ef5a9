// Package hostapi defines the wire format between a chat host and the
// preflight plugin. The host hands the plugin one turn per inbound user
// message and splices PrependContext (when present) into the assistant
// context before generation. This package is importable by hosts and
// carries no dependencies.
package hostapi

// Turn is one user message exchange the host is about to answer.
type Turn struct {
	PromptText string `json:"promptText"`
	SessionID  string `json:"sessionId"`
	Channel    string `json:"channel,omitempty"`
}

// HookOutput is the plugin's answer for a turn. An empty PrependContext
// means the turn gets no memory augmentation.
type HookOutput struct {
	PrependContext string `json:"prependContext,omitempty"`
}

// SemanticQuery is the request shape for a host-provided semantic search
// tool (spec'd by hosts that expose their own memory search).
type SemanticQuery struct {
	Query      string  `json:"query"`
	MaxResults int     `json:"maxResults,omitempty"`
	MinScore   float64 `json:"minScore,omitempty"`
}

// SemanticResult is one match returned by a host semantic search tool.
type SemanticResult struct {
	Path    string  `json:"path"`
	Snippet string  `json:"snippet,omitempty"`
	Score   float64 `json:"score"`
}

// SemanticResponse wraps host semantic search results. Disabled is set by
// hosts whose memory retrieval is configured off; callers treat it the
// same as zero results.
type SemanticResponse struct {
	Results  []SemanticResult `json:"results,omitempty"`
	Disabled bool             `json:"disabled,omitempty"`
}
