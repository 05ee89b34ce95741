package domain

import (
	"fmt"
	"path"
	"strings"
)

// BuildIdentityKey computes the canonical identity key used for dedup
// and idempotency. For local files it is the absolute
// normalized path; for everything else it is
// scheme://host[:port]/normalized-path, host lowercased.
//
// BuildIdentityKey is idempotent: build(x) == build(x) for any x, and
// case-insensitive over host.
func BuildIdentityKey(ref FileReference) string {
	normalized := normalizePath(ref.Path)
	if ref.Scheme == ProtocolLocal {
		return normalized
	}

	host := strings.ToLower(ref.Host)
	if ref.Port != 0 {
		return fmt.Sprintf("%s://%s:%d%s", ref.Scheme, host, ref.Port, normalized)
	}
	return fmt.Sprintf("%s://%s%s", ref.Scheme, host, normalized)
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
