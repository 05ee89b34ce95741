package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// FileResolver resolves a ref by treating it as a path to a file
// (the typical Docker/Kubernetes secret-mount pattern) rooted at Dir
// when ref is relative.
type FileResolver struct {
	Dir string
}

func NewFileResolver(dir string) *FileResolver {
	return &FileResolver{Dir: dir}
}

func (r *FileResolver) Resolve(_ context.Context, ref string) (Value, error) {
	if ref == "" {
		return Value{}, fmt.Errorf("secrets: empty ref")
	}
	path := ref
	if r.Dir != "" && !strings.HasPrefix(ref, "/") {
		path = r.Dir + "/" + ref
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("secrets: file resolver: %w", err)
	}
	return NewValue(strings.TrimSpace(string(b))), nil
}
