// Package protocol defines the uniform listing/read/delete/write
// contract every transport (local disk, FTP, SFTP) implements, plus a
// connection pool keyed by (protocol, host, port, credential
// fingerprint) with idle eviction.
package protocol

import (
	"context"
	"io"
	"time"
)

// RemoteFileInfo is what List/GetInfo return for one entry.
type RemoteFileInfo struct {
	FullPath     string
	Name         string
	Size         int64
	LastWriteUtc time.Time
	IsDirectory  bool
}

// Client is a disposable, scoped-acquisition resource: every open
// stream must be released on all exit paths, and Close tears down the
// underlying connection.
type Client interface {
	// Connect establishes (or reuses) the underlying connection.
	Connect(ctx context.Context) error

	// List lazily yields files under path. If recursive, it descends
	// into subdirectories. pattern is a glob applied to the file name.
	List(ctx context.Context, path string, recursive bool, pattern string) (<-chan ListResult, error)

	GetInfo(ctx context.Context, path string) (RemoteFileInfo, error)

	// OpenRead returns a stream positioned at the start of path. The
	// caller must Close it.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes path. It is silent (no error) if path is already
	// absent.
	Delete(ctx context.Context, path string) error

	// Write is only meaningful for sinks: it streams r to path under
	// options.
	Write(ctx context.Context, path string, r io.Reader, options WriteOptions) (int64, error)

	Close() error
}

// ListResult is one entry of a List stream, or a terminal error.
type ListResult struct {
	Info RemoteFileInfo
	Err  error
}

// WriteOptions holds the write settings a Client acts on. It is declared
// here rather than reusing domain.WriteOptions (whose fields differ),
// keeping protocol free of a dependency on the event-pipeline package.
type WriteOptions struct {
	Overwrite                    bool
	CreateDestinationDirectories bool
}

// Dialer constructs a fresh, not-yet-connected Client for one logical
// source/destination.
type Dialer interface {
	Dial(ctx context.Context) (Client, error)
}
