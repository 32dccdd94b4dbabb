package crs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	wktKeywordRegex   = regexp.MustCompile(`^[A-Z][A-Z0-9_]*\[`)
	wktAuthorityRegex = regexp.MustCompile(`(?:AUTHORITY|ID)\["(?P<authority>[^"]+)",\s*"?(?P<code>[0-9]+)"?\]\]$`)
	wktNameRegex      = regexp.MustCompile(`^[A-Z][A-Z0-9_]*\["(?P<name>[^"]*)"`)
)

// FromWKT resolves a WKT (1 or 2) definition. A definition that ends with an EPSG
// authority known to the definition table resolves to that EPSG CRS.
func FromWKT(wkt string) (CRS, error) {
	normalized := normalizeWKT(wkt)
	if err := checkWKT(normalized); err != nil {
		return CRS{}, err
	}
	c := CRS{wkt: normalized}
	if m := wktNameRegex.FindStringSubmatch(normalized); m != nil {
		c.description = m[1]
	}
	if m := wktAuthorityRegex.FindStringSubmatch(normalized); m != nil {
		c.authorityName = strings.ToUpper(m[1])
		c.authorityCode = m[2]
		if c.authorityName == epsgAuthority {
			code, err := strconv.Atoi(m[2])
			if _, known := lookupEPSG(code); err == nil && known {
				return FromEPSG(code)
			}
		}
	}
	return c, nil
}

// normalizeWKT removes all whitespace outside of quoted strings.
func normalizeWKT(wkt string) string {
	var sb strings.Builder
	sb.Grow(len(wkt))
	quoted := false
	for _, r := range wkt {
		if r == '"' {
			quoted = !quoted
		}
		if !quoted && unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func checkWKT(wkt string) error {
	if !wktKeywordRegex.MatchString(wkt) {
		return fmt.Errorf("wkt definition should start with a keyword followed by '[': %w", ErrUnresolvable)
	}
	depth := 0
	quoted := false
	for i, r := range wkt {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			depth++
		case r == ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced brackets in wkt definition at position %d: %w", i, ErrUnresolvable)
			}
			if depth == 0 && i != len(wkt)-1 {
				return fmt.Errorf("trailing content in wkt definition at position %d: %w", i+1, ErrUnresolvable)
			}
		}
	}
	if quoted || depth != 0 {
		return fmt.Errorf("unterminated wkt definition: %w", ErrUnresolvable)
	}
	return nil
}
