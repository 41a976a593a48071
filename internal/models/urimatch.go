// internal/models/urimatch.go
package models

import (
	"encoding/json"
	"fmt"
)

// URIMatch selects how a location's uri is matched.
type URIMatch string

const (
	URIMatchPrefix URIMatch = "prefix"
	URIMatchExact  URIMatch = "exact"
	URIMatchRegex  URIMatch = "regex"
	URIMatchIRegex URIMatch = "iregex"
	URIMatchBest   URIMatch = "best"
)

var URIMatches = []URIMatch{URIMatchPrefix, URIMatchExact, URIMatchRegex, URIMatchIRegex, URIMatchBest}

func (m *URIMatch) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, known := range URIMatches {
		if URIMatch(s) == known {
			*m = known
			return nil
		}
	}
	return fmt.Errorf("invalid urimatch %q", s)
}

// Modifier is the nginx location modifier for the match type. Prefix
// matching has none.
func (m URIMatch) Modifier() string {
	switch m {
	case URIMatchExact:
		return "="
	case URIMatchRegex:
		return "~"
	case URIMatchIRegex:
		return "~*"
	case URIMatchBest:
		return "^~"
	default:
		return ""
	}
}
