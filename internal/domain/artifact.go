package domain

import (
	"net/url"
	"strings"
	"time"
)

// ArtifactKind enumerates artifact types.
type ArtifactKind string

const (
	ArtifactKindImage ArtifactKind = "image"
	ArtifactKindVideo ArtifactKind = "video"
)

// Artifact is one generated image or video reference. Artifacts are immutable
// once created; Selected is the only field mutated afterwards.
type Artifact struct {
	Kind      ArtifactKind `json:"kind"`
	URL       string       `json:"url"`
	Prompt    string       `json:"prompt,omitempty"`
	Order     int          `json:"order"`
	Selected  bool         `json:"selected"`
	Width     int          `json:"width,omitempty"`
	Height    int          `json:"height,omitempty"`
	Style     string       `json:"style,omitempty"`
	Service   string       `json:"service,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Hosts that only ever serve stand-in imagery. Results pointing at them are
// never accepted as final artifacts.
var placeholderHosts = map[string]struct{}{
	"placeholder.local":   {},
	"via.placeholder.com": {},
	"placehold.co":        {},
}

// UsableArtifactURL reports whether raw may be persisted as a final artifact
// URL. Ephemeral schemes (blob:, data:, file:), relative references, loopback
// hosts and known placeholder hosts are all rejected.
func UsableArtifactURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return false
	}
	if _, ok := placeholderHosts[host]; ok {
		return false
	}
	return true
}
