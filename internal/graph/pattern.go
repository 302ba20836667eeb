package graph

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// dynamicPlaceholder marks the dynamic segment inside a declared child
// pattern, e.g. "items_*". The segment charset excludes "_" because "_" is
// the column-name separator.
const dynamicPlaceholder = "*"

const segmentGroup = `(?P<segment>[A-Za-z0-9]+)`

// Match describes one column that satisfied a dynamic child pattern.
type Match struct {
	// Column is the matching column name.
	Column string

	// Segment is the captured dynamic segment. It names the field on the
	// parent entity.
	Segment string

	// Meta is the metadata registered under the segment as a token, or nil
	// when no such token exists and the caller must fall back to label-based
	// resolution on the column's node value.
	Meta *TypeMeta
}

// matcherCache holds compiled matchers keyed by pattern and parent prefix.
// Identical matchers recur across rows and calls; compiled values are
// immutable so the cache is shared process-wide.
var matcherCache sync.Map

// CompilePattern substitutes the pattern's "*" placeholder with a named
// capture group and anchors the rest literally against "<parentPrefix>_".
// The same pattern and prefix always yield the same matcher.
func CompilePattern(pattern, parentPrefix string) (*regexp.Regexp, error) {
	cacheKey := pattern + "\x00" + parentPrefix
	if cached, ok := matcherCache.Load(cacheKey); ok {
		return cached.(*regexp.Regexp), nil
	}

	i := strings.Index(pattern, dynamicPlaceholder)
	if i < 0 || strings.Contains(pattern[i+1:], dynamicPlaceholder) {
		return nil, fmt.Errorf("%w: %q must contain exactly one %q", ErrInvalidPattern, pattern, dynamicPlaceholder)
	}

	expr := "^" +
		regexp.QuoteMeta(parentPrefix+"_") +
		regexp.QuoteMeta(pattern[:i]) +
		segmentGroup +
		regexp.QuoteMeta(pattern[i+1:]) +
		"$"

	matcher, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	matcherCache.Store(cacheKey, matcher)
	return matcher, nil
}

// ResolvePattern reports every column that satisfies the pattern under the
// given parent prefix, in the iteration order of availableColumns. Each
// match carries the registered metadata for its captured segment when the
// segment is a known token.
func ResolvePattern(reg *Registry, pattern, parentPrefix string, availableColumns []string) ([]Match, error) {
	matcher, err := CompilePattern(pattern, parentPrefix)
	if err != nil {
		return nil, err
	}

	segmentIndex := matcher.SubexpIndex("segment")

	var matches []Match
	for _, column := range availableColumns {
		sub := matcher.FindStringSubmatch(column)
		if sub == nil {
			continue
		}
		segment := sub[segmentIndex]
		meta, _ := reg.ResolveByToken(segment)
		matches = append(matches, Match{
			Column:  column,
			Segment: segment,
			Meta:    meta,
		})
	}

	return matches, nil
}
