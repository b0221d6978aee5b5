package genclient

import (
	"fmt"

	"campaignforge/internal/domain"
)

const (
	CountMin     = 1
	CountMax     = 10
	DefaultCount = 1

	DefaultStyle        = "realistic"
	DefaultImageService = "flux"

	// Video generation has a single backing provider.
	VideoService = "veo"
)

// ImageStyles is the accepted style vocabulary for image generation.
var ImageStyles = []string{"realistic", "artistic", "minimalist", "vibrant", "professional"}

// ImageServices is the accepted set of backing image providers.
var ImageServices = []string{"flux", "sdxl", "ideogram"}

// Params configures one generation request for one post.
type Params struct {
	Kind    domain.ArtifactKind
	Count   int
	Style   string
	Service string
	Locale  string
}

// Normalized returns a copy with defaults applied for zero-valued fields.
// It does not validate; call Validate on the result.
func (p Params) Normalized() Params {
	out := p
	if out.Kind == "" {
		out.Kind = domain.ArtifactKindImage
	}
	if out.Count == 0 {
		out.Count = DefaultCount
	}
	if out.Style == "" {
		out.Style = DefaultStyle
	}
	if out.Service == "" {
		if out.Kind == domain.ArtifactKindVideo {
			out.Service = VideoService
		} else {
			out.Service = DefaultImageService
		}
	}
	if out.Kind == domain.ArtifactKindVideo {
		// Only one video at a time; provider is fixed.
		out.Count = 1
		out.Service = VideoService
	}
	return out
}

// Validate rejects malformed params before any network call is made.
func (p Params) Validate() error {
	if p.Kind != domain.ArtifactKindImage && p.Kind != domain.ArtifactKindVideo {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidParams, p.Kind)
	}
	if p.Count < CountMin || p.Count > CountMax {
		return fmt.Errorf("%w: count %d outside [%d,%d]", domain.ErrInvalidParams, p.Count, CountMin, CountMax)
	}
	if p.Kind == domain.ArtifactKindVideo {
		if p.Service != VideoService {
			return fmt.Errorf("%w: unsupported video service %q", domain.ErrInvalidParams, p.Service)
		}
		return nil
	}
	if !contains(ImageStyles, p.Style) {
		return fmt.Errorf("%w: unsupported style %q", domain.ErrInvalidParams, p.Style)
	}
	if !contains(ImageServices, p.Service) {
		return fmt.Errorf("%w: unsupported service %q", domain.ErrInvalidParams, p.Service)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
