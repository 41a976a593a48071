package validatedeclaration

import (
	"encoding/json"
	"fmt"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/internal/models"
)

const (
	codeInvalidReference = "invalid_reference"
	codeDuplicateName    = "duplicate_name"
)

// checkReferences resolves every by-name reference in the declaration and
// reports dangling ones in document order.
func checkReferences(d *models.Declaration) []errors.Violation {
	var out []errors.Violation

	// http and stream upstreams share one shared-memory zone namespace.
	seen := make(map[string]string, len(d.Upstreams))
	unique := func(name, path string) {
		if name == "" {
			return
		}
		if first, dup := seen[name]; dup {
			out = append(out, errors.Violation{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate upstream name %s, first declared at %s", name, first),
				Code:    codeDuplicateName,
			})
			return
		}
		seen[name] = path
	}
	for i, u := range d.Upstreams {
		unique(u.Name, fmt.Sprintf("declaration.upstreams.%d", i))
	}
	if d.Layer4 != nil {
		for i, u := range d.Layer4.Upstreams {
			unique(u.Name, fmt.Sprintf("declaration.layer4.upstreams.%d", i))
		}
	}

	for i, s := range d.Servers {
		for j, loc := range s.Locations {
			path := fmt.Sprintf("declaration.servers.%d.locations.%d", i, j)

			if loc.Upstream != "" && d.FindUpstream(loc.UpstreamName()) == nil {
				out = append(out, errors.Violation{
					Field:   path + ".upstream",
					Message: fmt.Sprintf("invalid HTTP upstream %s", loc.Upstream),
					Code:    codeInvalidReference,
				})
			}

			if loc.RateLimit != nil && loc.RateLimit.Profile != "" && d.RateLimitProfile(loc.RateLimit.Profile) == nil {
				out = append(out, errors.Violation{
					Field:   path + ".rate_limit.profile",
					Message: fmt.Sprintf("invalid rate_limit profile %s", loc.RateLimit.Profile),
					Code:    codeInvalidReference,
				})
			}

			if loc.Caching != "" && d.CachingPolicy(loc.Caching) == nil {
				out = append(out, errors.Violation{
					Field:   path + ".caching",
					Message: fmt.Sprintf("invalid caching profile %s", loc.Caching),
					Code:    codeInvalidReference,
				})
			}
		}
	}

	if d.Layer4 != nil {
		for i, s := range d.Layer4.Servers {
			if s.Upstream != "" && d.Layer4.FindUpstream(s.Upstream) == nil {
				out = append(out, errors.Violation{
					Field:   fmt.Sprintf("declaration.layer4.servers.%d.upstream", i),
					Message: fmt.Sprintf("invalid Layer4 upstream %s", s.Upstream),
					Code:    codeInvalidReference,
				})
			}
		}
	}

	return out
}

// referenceView is the part of a document the reference checks read. It has
// no custom decoders, so a type mismatch anywhere only leaves the mismatched
// field empty and the rest of the document is still decoded.
type referenceView struct {
	Declaration struct {
		Servers []struct {
			Locations []struct {
				Upstream  string `json:"upstream"`
				Caching   string `json:"caching"`
				RateLimit *struct {
					Profile string `json:"profile"`
				} `json:"rate_limit"`
			} `json:"locations"`
		} `json:"servers"`
		Upstreams []namedItem `json:"upstreams"`
		Caching   []namedItem `json:"caching"`
		RateLimit []namedItem `json:"rate_limit"`
		Layer4    *struct {
			Servers []struct {
				Upstream string `json:"upstream"`
			} `json:"servers"`
			Upstreams []namedItem `json:"upstreams"`
		} `json:"layer4"`
	} `json:"declaration"`
}

type namedItem struct {
	Name string `json:"name"`
}

// referencesOf extracts the named items and references of a document that
// failed the schema, so its reference violations are reported in the same
// verdict.
func referencesOf(raw []byte) *models.Declaration {
	var view referenceView
	// Type errors are expected here; encoding/json keeps decoding past them.
	_ = json.Unmarshal(raw, &view)
	v := view.Declaration

	d := &models.Declaration{}
	for _, s := range v.Servers {
		var server models.Server
		for _, l := range s.Locations {
			loc := models.Location{Upstream: l.Upstream, Caching: l.Caching}
			if l.RateLimit != nil {
				loc.RateLimit = &models.RateLimit{Profile: l.RateLimit.Profile}
			}
			server.Locations = append(server.Locations, loc)
		}
		d.Servers = append(d.Servers, server)
	}
	for _, u := range v.Upstreams {
		d.Upstreams = append(d.Upstreams, models.Upstream{Name: u.Name})
	}
	for _, c := range v.Caching {
		d.Caching = append(d.Caching, models.CachingPolicy{Name: c.Name})
	}
	for _, r := range v.RateLimit {
		d.RateLimit = append(d.RateLimit, models.RateLimitProfile{Name: r.Name})
	}
	if v.Layer4 != nil {
		d.Layer4 = &models.Layer4{}
		for _, s := range v.Layer4.Servers {
			d.Layer4.Servers = append(d.Layer4.Servers, models.L4Server{Upstream: s.Upstream})
		}
		for _, u := range v.Layer4.Upstreams {
			d.Layer4.Upstreams = append(d.Layer4.Upstreams, models.L4Upstream{Name: u.Name})
		}
	}
	return d
}
