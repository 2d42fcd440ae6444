package cache

import (
	"net/http"
	"strings"
)

// VarySeparator joins vary header values inside CacheKey.VaryContext.
// It is a control character that net/http rejects in field values.
const VarySeparator = "\x1f"

// DefaultVaryHeaders are the content negotiation headers that partition the cache.
// Order matters: it defines the layout of VaryContext.
var DefaultVaryHeaders = []string{"Accept", "Accept-Language"}

// CacheKey identifies a cached response.
// Two keys are equal iff all fields match, so CacheKey can be used as a map key.
type CacheKey struct {
	// Path is the lower-cased request path.
	Path string

	// Query is the lower-cased raw query, including the leading "?" when present.
	Query string

	// VaryContext holds the vary header values in order, joined by VarySeparator.
	// Absent headers contribute an empty segment.
	VaryContext string
}

// KeyFromRequest builds the cache key for r.
func KeyFromRequest(r *http.Request, varyHeaders []string) CacheKey {
	key := CacheKey{
		Path: strings.ToLower(r.URL.Path),
	}
	if r.URL.RawQuery != "" {
		key.Query = "?" + strings.ToLower(r.URL.RawQuery)
	}

	values := make([]string, len(varyHeaders))
	for i, name := range varyHeaders {
		values[i] = strings.Join(r.Header.Values(name), ", ")
	}
	key.VaryContext = strings.Join(values, VarySeparator)

	return key
}

// WithPath returns a copy of k addressing path instead.
func (k CacheKey) WithPath(path string) CacheKey {
	k.Path = strings.ToLower(path)
	return k
}

// String generates a deterministic string form of the key, e.g. for use as a Redis field.
// Format: path|query|vary, with "|" and "\" escaped inside each part.
//
// Example:
//
//	/shops/42|?page=1|application/json\x1fen-US
func (k CacheKey) String() string {
	parts := []string{escapeKeyPart(k.Path), escapeKeyPart(k.Query), escapeKeyPart(k.VaryContext)}
	return strings.Join(parts, "|")
}

var keyPartEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

func escapeKeyPart(s string) string {
	return keyPartEscaper.Replace(s)
}
