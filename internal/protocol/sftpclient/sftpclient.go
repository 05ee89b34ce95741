// Package sftpclient implements protocol.Client over SFTP using
// github.com/pkg/sftp atop golang.org/x/crypto/ssh.
package sftpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/littleandi/filehorizon/internal/protocol"
)

// Config holds everything needed to dial and authenticate one SFTP
// target. Exactly one of Password or PrivateKeyPEM should be set.
type Config struct {
	Host          string
	Port          uint16
	Username      string
	Password      string
	PrivateKeyPEM []byte
	HostKeyPEM    []byte // pinned host key; empty disables verification
	Timeout       time.Duration
}

type Dialer struct {
	Cfg Config
}

func NewDialer(cfg Config) *Dialer { return &Dialer{Cfg: cfg} }

func (d *Dialer) Dial(context.Context) (protocol.Client, error) {
	return &Client{cfg: d.Cfg}, nil
}

type Client struct {
	cfg     Config
	sshConn *ssh.Client
	sftp    *sftp.Client
}

func (c *Client) Connect(ctx context.Context) error {
	if c.sftp != nil {
		return nil
	}

	var auth []ssh.AuthMethod
	if len(c.cfg.PrivateKeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(c.cfg.PrivateKeyPEM)
		if err != nil {
			return fmt.Errorf("sftpclient: parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.cfg.Password != "" {
		auth = append(auth, ssh.Password(c.cfg.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if len(c.cfg.HostKeyPEM) > 0 {
		pub, _, _, _, err := ssh.ParseAuthorizedKey(c.cfg.HostKeyPEM)
		if err != nil {
			return fmt.Errorf("sftpclient: parse host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))
	dialer := net.Dialer{Timeout: timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("sftpclient: dial %s: %w", addr, err)
	}
	sshConnConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshCfg)
	if err != nil {
		return fmt.Errorf("sftpclient: ssh handshake %s: %w", addr, err)
	}
	sshConn := ssh.NewClient(sshConnConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		_ = sshConn.Close()
		return fmt.Errorf("sftpclient: open sftp subsystem: %w", err)
	}

	c.sshConn = sshConn
	c.sftp = sftpClient
	return nil
}

func (c *Client) Close() error {
	if c.sftp != nil {
		_ = c.sftp.Close()
		c.sftp = nil
	}
	if c.sshConn != nil {
		err := c.sshConn.Close()
		c.sshConn = nil
		return err
	}
	return nil
}

func (c *Client) List(ctx context.Context, dir string, recursive bool, pattern string) (<-chan protocol.ListResult, error) {
	if c.sftp == nil {
		return nil, fmt.Errorf("sftpclient: not connected")
	}
	out := make(chan protocol.ListResult)
	go func() {
		defer close(out)
		c.walk(ctx, dir, recursive, pattern, out)
	}()
	return out, nil
}

func (c *Client) walk(ctx context.Context, dir string, recursive bool, pattern string, out chan<- protocol.ListResult) {
	entries, err := c.sftp.ReadDir(dir)
	if err != nil {
		out <- protocol.ListResult{Err: fmt.Errorf("sftpclient: readdir %s: %w", dir, err)}
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		full := path.Join(dir, e.Name())
		if e.IsDir() {
			if recursive {
				c.walk(ctx, full, recursive, pattern, out)
			}
			continue
		}
		if pattern != "" {
			if ok, _ := path.Match(pattern, e.Name()); !ok {
				continue
			}
		}
		out <- protocol.ListResult{Info: protocol.RemoteFileInfo{
			FullPath:     full,
			Name:         e.Name(),
			Size:         e.Size(),
			LastWriteUtc: e.ModTime().UTC(),
		}}
	}
}

func (c *Client) GetInfo(_ context.Context, p string) (protocol.RemoteFileInfo, error) {
	info, err := c.sftp.Stat(p)
	if err != nil {
		return protocol.RemoteFileInfo{}, fmt.Errorf("sftpclient: stat %s: %w", p, err)
	}
	return protocol.RemoteFileInfo{
		FullPath:     p,
		Name:         info.Name(),
		Size:         info.Size(),
		LastWriteUtc: info.ModTime().UTC(),
		IsDirectory:  info.IsDir(),
	}, nil
}

func (c *Client) OpenRead(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := c.sftp.Open(p)
	if err != nil {
		return nil, fmt.Errorf("sftpclient: open %s: %w", p, err)
	}
	return f, nil
}

func (c *Client) Delete(_ context.Context, p string) error {
	err := c.sftp.Remove(p)
	if err != nil && sftpIsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sftpclient: remove %s: %w", p, err)
	}
	return nil
}

func sftpIsNotExist(err error) bool {
	sftpErr, ok := err.(*sftp.StatusError)
	return ok && sftpErr.Code == uint32(sftp.ErrSSHFxNoSuchFile)
}

func (c *Client) Write(_ context.Context, p string, r io.Reader, options protocol.WriteOptions) (int64, error) {
	if options.CreateDestinationDirectories {
		_ = c.sftp.MkdirAll(path.Dir(p))
	}
	if !options.Overwrite {
		if _, err := c.sftp.Stat(p); err == nil {
			return 0, fmt.Errorf("sftpclient: destination exists and overwrite is disabled: %s", p)
		}
	}

	tmp := p + ".fh-tmp"
	f, err := c.sftp.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("sftpclient: create %s: %w", tmp, err)
	}
	n, err := io.Copy(f, r)
	closeErr := f.Close()
	if err != nil {
		_ = c.sftp.Remove(tmp)
		return n, fmt.Errorf("sftpclient: write %s: %w", tmp, err)
	}
	if closeErr != nil {
		_ = c.sftp.Remove(tmp)
		return n, fmt.Errorf("sftpclient: close %s: %w", tmp, closeErr)
	}
	if err := c.sftp.Rename(tmp, p); err != nil {
		return n, fmt.Errorf("sftpclient: rename %s -> %s: %w", tmp, p, err)
	}
	return n, nil
}
