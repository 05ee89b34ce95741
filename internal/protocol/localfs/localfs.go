// Package localfs implements protocol.Client over the local
// filesystem using os/io directly — no connection to establish, Close
// is a no-op.
package localfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/littleandi/filehorizon/internal/protocol"
)

type Client struct {
	Root string
}

func New(root string) *Client { return &Client{Root: root} }

func (c *Client) Connect(context.Context) error { return nil }
func (c *Client) Close() error                  { return nil }

func (c *Client) List(ctx context.Context, path string, recursive bool, pattern string) (<-chan protocol.ListResult, error) {
	out := make(chan protocol.ListResult)
	go func() {
		defer close(out)
		walkFn := func(p string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				out <- protocol.ListResult{Err: err}
				return nil
			}
			if d.IsDir() {
				if !recursive && p != path {
					return filepath.SkipDir
				}
				return nil
			}
			if pattern != "" {
				if ok, _ := filepath.Match(pattern, d.Name()); !ok {
					return nil
				}
			}
			info, err := d.Info()
			if err != nil {
				out <- protocol.ListResult{Err: err}
				return nil
			}
			out <- protocol.ListResult{Info: protocol.RemoteFileInfo{
				FullPath:     p,
				Name:         d.Name(),
				Size:         info.Size(),
				LastWriteUtc: info.ModTime().UTC(),
			}}
			return nil
		}
		_ = filepath.WalkDir(path, walkFn)
	}()
	return out, nil
}

func (c *Client) GetInfo(_ context.Context, path string) (protocol.RemoteFileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return protocol.RemoteFileInfo{}, err
	}
	return protocol.RemoteFileInfo{
		FullPath:     path,
		Name:         info.Name(),
		Size:         info.Size(),
		LastWriteUtc: info.ModTime().UTC(),
		IsDirectory:  info.IsDir(),
	}, nil
}

func (c *Client) OpenRead(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (c *Client) Delete(_ context.Context, path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Write atomically writes r to path: write to a temp file in the same
// directory, fsync, then rename, so a crash never leaves a zero-byte
// destination.
func (c *Client) Write(_ context.Context, path string, r io.Reader, options protocol.WriteOptions) (int64, error) {
	dir := filepath.Dir(path)
	if options.CreateDestinationDirectories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("localfs: mkdir %s: %w", dir, err)
		}
	}
	if !options.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return 0, fmt.Errorf("localfs: destination exists and overwrite is disabled: %s", path)
		}
	}

	tmp, err := os.CreateTemp(dir, ".fh-tmp-*")
	if err != nil {
		return 0, fmt.Errorf("localfs: create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return n, fmt.Errorf("localfs: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("localfs: fsync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("localfs: close temp %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, fmt.Errorf("localfs: rename %s -> %s: %w", tmpName, path, err)
	}
	success = true
	return n, nil
}
