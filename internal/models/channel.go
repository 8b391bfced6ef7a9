package models

// Channel represents a single playable entry from a playlist (name, stream url, category, logo).
type Channel struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Logo      string         `json:"logo,omitempty"`
	Poster    string         `json:"poster,omitempty"`
	StreamURL string         `json:"streamUrl,omitempty"`
	Sources   []StreamSource `json:"sources,omitempty"`
	Category  string         `json:"category,omitempty"`
	Live      bool           `json:"live"`
	Headers   *HTTPHeaders   `json:"headers,omitempty"` // from EXTVLCOPT lines
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StreamSource is an alternative playback URL for a channel.
type StreamSource struct {
	URL       string `json:"url"`
	MediaType string `json:"mediaType,omitempty"`
	Label     string `json:"label,omitempty"`
}
