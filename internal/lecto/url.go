package lecto

import (
	"fmt"
	"net/url"
	"strings"
)

// JoinURL appends path segments to base, escaping each one. A trailing slash
// on base is ignored.
func JoinURL(base string, segments ...string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", base, err)
	}

	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}

	return u.JoinPath(escaped...), nil
}
