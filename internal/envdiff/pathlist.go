package envdiff

import "strings"

// PathLike lists the variables whose values are search lists and get
// deduplicated on merge. Names match case-insensitively.
var PathLike = []string{"PATH", "INCLUDE", "LIB", "LIBPATH"}

// IsPathLike reports whether name is in PathLike.
func IsPathLike(name string) bool {
	for _, v := range PathLike {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

// Dedup drops every entry of the sep-separated list value that is equal to
// an earlier one and keeps the rest in order.
//
// Entries compare byte for byte: "/usr/bin" and "/usr/bin/" are both kept,
// as are entries differing only in case. Lookup order among entries that
// are not exact repeats is never changed.
func Dedup(value, sep string) string {
	if sep == "" || !strings.Contains(value, sep) {
		return value
	}
	parts := strings.Split(value, sep)
	seen := make(map[string]struct{}, len(parts))
	out := parts[:0]
	for _, p := range parts {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return strings.Join(out, sep)
}
