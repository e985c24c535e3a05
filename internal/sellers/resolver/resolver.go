// Package resolver maps a domain to the URL its sellers document is
// published at, honoring a small override table for domains whose document
// lives at a non-standard location.
package resolver

import (
	"fmt"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

// Resolution is the URL plan for one domain. FallbackURL is set only when
// an override is in play; domains without an override get a single attempt
// at the canonical location.
type Resolution struct {
	PrimaryURL  string
	FallbackURL string
}

type Resolver struct {
	overrides map[string]string
}

// New builds a resolver from an injected override table. Keys are
// normalized so config casing never matters.
func New(overrides map[string]string) *Resolver {
	normalized := make(map[string]string, len(overrides))
	for dom, url := range overrides {
		dom = domain.NormalizeDomain(dom)
		if dom == "" || url == "" {
			continue
		}
		normalized[dom] = url
	}
	return &Resolver{overrides: normalized}
}

// Resolve returns the fetch plan for a domain. Override domains use the
// override URL first and keep the canonical URL as fallback.
func (r *Resolver) Resolve(dom string) Resolution {
	dom = domain.NormalizeDomain(dom)
	canonical := fmt.Sprintf("https://%s/sellers.json", dom)

	if override, ok := r.overrides[dom]; ok {
		return Resolution{PrimaryURL: override, FallbackURL: canonical}
	}
	return Resolution{PrimaryURL: canonical}
}
