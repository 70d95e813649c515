package blob

import (
	"net/url"
	"path"
	"strings"
)

// keyUnder returns the object key of raw when it sits directly below prefix.
// Queries, fragments and dot segments are refused.
func keyUnder(raw, prefix string) (string, bool) {
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return "", false
	}
	key := strings.TrimPrefix(raw, prefix)
	if key == "" || strings.Contains(key, "%") || path.Clean("/"+key) != "/"+key {
		return "", false
	}
	return key, true
}
