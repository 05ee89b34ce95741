// Package ftpclient implements protocol.Client over FTP/FTPS using
// github.com/jlaffaye/ftp.
package ftpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/littleandi/filehorizon/internal/protocol"
)

// Config holds everything needed to dial and authenticate one FTP
// target.
type Config struct {
	Host     string
	Port     uint16
	Username string
	Password string
	Timeout  time.Duration
	Passive  bool
}

// Dialer constructs a fresh ftpclient.Client per protocol.Dialer.
type Dialer struct {
	Cfg Config
}

func NewDialer(cfg Config) *Dialer { return &Dialer{Cfg: cfg} }

func (d *Dialer) Dial(context.Context) (protocol.Client, error) {
	return &Client{cfg: d.Cfg}, nil
}

type Client struct {
	cfg  Config
	conn *ftp.ServerConn
}

func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []ftp.DialOption{ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx)}
	conn, err := ftp.Dial(addr, opts...)
	if err != nil {
		return fmt.Errorf("ftpclient: dial %s: %w", addr, err)
	}
	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		_ = conn.Quit()
		return fmt.Errorf("ftpclient: login %s: %w", addr, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Quit()
	c.conn = nil
	return err
}

func (c *Client) List(ctx context.Context, dir string, recursive bool, pattern string) (<-chan protocol.ListResult, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("ftpclient: not connected")
	}
	out := make(chan protocol.ListResult)
	go func() {
		defer close(out)
		c.walk(ctx, dir, recursive, pattern, out)
	}()
	return out, nil
}

func (c *Client) walk(ctx context.Context, dir string, recursive bool, pattern string, out chan<- protocol.ListResult) {
	entries, err := c.conn.List(dir)
	if err != nil {
		out <- protocol.ListResult{Err: fmt.Errorf("ftpclient: list %s: %w", dir, err)}
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		full := path.Join(dir, e.Name)
		switch e.Type {
		case ftp.EntryTypeFolder:
			if recursive {
				c.walk(ctx, full, recursive, pattern, out)
			}
		case ftp.EntryTypeFile:
			if pattern != "" {
				if ok, _ := path.Match(pattern, e.Name); !ok {
					continue
				}
			}
			out <- protocol.ListResult{Info: protocol.RemoteFileInfo{
				FullPath:     full,
				Name:         e.Name,
				Size:         int64(e.Size),
				LastWriteUtc: e.Time.UTC(),
			}}
		}
	}
}

func (c *Client) GetInfo(_ context.Context, p string) (protocol.RemoteFileInfo, error) {
	entries, err := c.conn.List(p)
	if err != nil {
		return protocol.RemoteFileInfo{}, fmt.Errorf("ftpclient: stat %s: %w", p, err)
	}
	if len(entries) != 1 {
		return protocol.RemoteFileInfo{}, fmt.Errorf("ftpclient: %s did not resolve to one entry", p)
	}
	e := entries[0]
	return protocol.RemoteFileInfo{
		FullPath:     p,
		Name:         e.Name,
		Size:         int64(e.Size),
		LastWriteUtc: e.Time.UTC(),
		IsDirectory:  e.Type == ftp.EntryTypeFolder,
	}, nil
}

func (c *Client) OpenRead(_ context.Context, p string) (io.ReadCloser, error) {
	resp, err := c.conn.Retr(p)
	if err != nil {
		return nil, fmt.Errorf("ftpclient: retr %s: %w", p, err)
	}
	return resp, nil
}

func (c *Client) Delete(_ context.Context, p string) error {
	if err := c.conn.Delete(p); err != nil {
		// 550: file unavailable, the server's reply for a missing file.
		var replyErr *textproto.Error
		if errors.As(err, &replyErr) && replyErr.Code == 550 {
			return nil
		}
		return fmt.Errorf("ftpclient: delete %s: %w", p, err)
	}
	return nil
}

func (c *Client) Write(_ context.Context, p string, r io.Reader, options protocol.WriteOptions) (int64, error) {
	if options.CreateDestinationDirectories {
		_ = c.conn.MakeDir(path.Dir(p))
	}
	counter := &countingReader{r: r}
	if err := c.conn.Stor(p, counter); err != nil {
		return counter.n, fmt.Errorf("ftpclient: stor %s: %w", p, err)
	}
	return counter.n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
