package crs

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	crsURIRegexURL  = regexp.MustCompile("https?://.+/def/crs/(?P<authority>[^/]+)/[^/]+/(?P<code>[^/]+)$")
	crsURIRegexURN  = regexp.MustCompile("^urn:ogc:def:crs:(?P<authority>[^:]+):[^:]*:(?P<code>[^:]+)$")
	authorityRegex  = regexp.MustCompile(`^(?i)(?P<authority>epsg):(?P<code>[0-9]+)$`)
	projInitRegex   = regexp.MustCompile(`^\+init=(?i)(?P<authority>epsg):(?P<code>[0-9]+)$`)
	projParamPrefix = "+proj="
)

// FromProj resolves a PROJ definition. Besides "+proj=..." strings it accepts
// "EPSG:<code>", "+init=epsg:<code>", OGC CRS URIs/URNs and WKT.
func FromProj(proj string) (CRS, error) {
	trimmed := strings.TrimSpace(proj)
	if trimmed == "" {
		return CRS{}, fmt.Errorf("empty proj definition: %w", ErrUnresolvable)
	}
	if m := authorityRegex.FindStringSubmatch(trimmed); m != nil {
		return fromAuthority(m[1], m[2], trimmed)
	}
	if m := crsURIRegexURL.FindStringSubmatch(trimmed); m != nil {
		return fromAuthority(m[1], m[2], trimmed)
	}
	if m := crsURIRegexURN.FindStringSubmatch(trimmed); m != nil {
		return fromAuthority(m[1], m[2], trimmed)
	}
	if wktKeywordRegex.MatchString(trimmed) {
		return FromWKT(trimmed)
	}
	if !strings.HasPrefix(trimmed, "+") {
		return CRS{}, fmt.Errorf("could not parse proj definition %q: %w", trimmed, ErrUnresolvable)
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) == 1 {
		if m := projInitRegex.FindStringSubmatch(tokens[0]); m != nil {
			return fromAuthority(m[1], m[2], trimmed)
		}
	}
	var projName string
	for _, token := range tokens {
		if !strings.HasPrefix(token, "+") {
			return CRS{}, fmt.Errorf("proj parameter %q should start with '+': %w", token, ErrUnresolvable)
		}
		if strings.HasPrefix(token, projParamPrefix) {
			projName = strings.TrimPrefix(token, projParamPrefix)
		}
	}
	if projName == "" {
		return CRS{}, fmt.Errorf("proj definition %q has no +proj parameter: %w", trimmed, ErrUnresolvable)
	}
	slices.Sort(tokens)
	return CRS{
		description: projName,
		proj:        strings.Join(slices.Compact(tokens), " "),
	}, nil
}

func fromAuthority(authority string, code string, original string) (CRS, error) {
	authority = strings.ToUpper(authority)
	if authority == epsgAuthority {
		epsg, err := strconv.Atoi(code)
		if err != nil {
			return CRS{}, fmt.Errorf("EPSG code %q is not numeric: %w", code, ErrUnresolvable)
		}
		return FromEPSG(epsg)
	}
	return CRS{
		description:   original,
		authorityName: authority,
		authorityCode: code,
		proj:          original,
	}, nil
}
