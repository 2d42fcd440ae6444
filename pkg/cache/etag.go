package cache

import (
	"errors"
	"strings"
)

// weakPrefix marks a weak validator, e.g. W/"abc".
const weakPrefix = "W/"

// ErrMalformedETag indicates an If-Match/If-None-Match value that cannot be parsed.
var ErrMalformedETag = errors.New("malformed etag")

// ETag is an entity tag: an opaque validator for one version of a response body.
type ETag struct {
	// Value is the opaque tag without quotes or weak prefix.
	Value string

	// Strong is false for weak validators (W/ prefix).
	Strong bool
}

// ParseETag parses a single entity tag.
//
// Both quoted ("abc", W/"abc") and bare (abc, W/abc) forms are accepted.
func ParseETag(raw string) (ETag, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ETag{}, ErrMalformedETag
	}

	tag := ETag{Strong: true}
	if strings.HasPrefix(raw, weakPrefix) {
		tag.Strong = false
		raw = raw[len(weakPrefix):]
	}

	if strings.HasPrefix(raw, `"`) || strings.HasSuffix(raw, `"`) {
		if len(raw) < 2 || !strings.HasPrefix(raw, `"`) || !strings.HasSuffix(raw, `"`) {
			return ETag{}, ErrMalformedETag
		}
		raw = raw[1 : len(raw)-1]
	}

	if raw == "" || strings.Contains(raw, `"`) {
		return ETag{}, ErrMalformedETag
	}
	tag.Value = raw
	return tag, nil
}

// ParseETagList parses the value of an If-Match or If-None-Match header.
// It reports wildcard=true for "*". A single malformed member fails the whole list.
func ParseETagList(raw string) (tags []ETag, wildcard bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "*" {
		return nil, true, nil
	}

	for _, part := range splitETagList(raw) {
		tag, err := ParseETag(part)
		if err != nil {
			return nil, false, err
		}
		tags = append(tags, tag)
	}
	return tags, false, nil
}

// splitETagList splits a header value on the commas outside quoted tags.
func splitETagList(raw string) []string {
	var parts []string
	start, quoted := 0, false
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, raw[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, raw[start:])
}

// String renders the tag in header form.
func (e ETag) String() string {
	var sb strings.Builder
	sb.Grow(len(e.Value) + 4)
	if !e.Strong {
		sb.WriteString(weakPrefix)
	}
	sb.WriteByte('"')
	sb.WriteString(e.Value)
	sb.WriteByte('"')
	return sb.String()
}

// IsZero reports whether the tag carries no value.
func (e ETag) IsZero() bool {
	return e.Value == ""
}

// ETagEquals compares two tags.
// With strong comparison both tags must be strong. Values compare case-insensitively.
func ETagEquals(a, b *ETag, strong bool) bool {
	if a == nil || b == nil {
		return false
	}
	if strong && (!a.Strong || !b.Strong) {
		return false
	}
	return strings.EqualFold(a.Value, b.Value)
}

// matchesHeader reports whether a conditional header value matches the cached tag.
// A malformed header never matches.
func matchesHeader(cached *ETag, header string, strong bool) bool {
	if cached == nil {
		return false
	}

	tags, wildcard, err := ParseETagList(header)
	if err != nil {
		return false
	}
	if wildcard {
		return true
	}

	for i := range tags {
		if ETagEquals(cached, &tags[i], strong) {
			return true
		}
	}
	return false
}
