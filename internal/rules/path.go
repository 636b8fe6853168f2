package rules

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// Expand substitutes every $i in replacement with groups[i].
// Placeholders whose index has no group are left as written.
func Expand(replacement string, groups []string) string {
	return placeholder.ReplaceAllStringFunc(replacement, func(tok string) string {
		i, err := strconv.Atoi(tok[1:])
		if err != nil || i >= len(groups) {
			return tok
		}
		return groups[i]
	})
}

// Normalize makes p absolute and collapses repeated slashes and dot segments.
// A trailing slash survives so directory requests keep their meaning.
func Normalize(p string) string {
	return Join(p)
}

// Join joins elems under "/" the way Normalize does.
func Join(elems ...string) string {
	joined := path.Join(append([]string{"/"}, elems...)...)
	if len(elems) > 0 {
		last := elems[len(elems)-1]
		if strings.HasSuffix(last, "/") && joined != "/" {
			joined += "/"
		}
	}
	return joined
}

// SplitQuery splits a request URI into its path and raw query.
func SplitQuery(uri string) (p, query string) {
	p, query, _ = strings.Cut(uri, "?")
	return p, query
}
