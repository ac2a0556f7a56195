package connectors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"mdm-platform/feedhub/internal/constants"
	"mdm-platform/feedhub/internal/credentials"
	"mdm-platform/feedhub/internal/logging"
)

// SFTPConnector speaks SFTP over an SSH session
type SFTPConnector struct {
	creds *credentials.SFTPCredentials
	opts  Options

	mu        sync.Mutex
	closed    bool
	sshClient *ssh.Client
	client    *sftp.Client
}

func NewSFTPConnector(creds *credentials.SFTPCredentials, opts Options) *SFTPConnector {
	return &SFTPConnector{creds: creds, opts: opts}
}

func (c *SFTPConnector) Kind() credentials.Kind { return credentials.KindSFTP }

func (c *SFTPConnector) Connect(ctx context.Context) error {
	cfg, err := c.clientConfig()
	if err != nil {
		return newError(constants.ErrCodeCredentialsInvalid, "invalid sftp credentials", err)
	}

	addr := net.JoinHostPort(c.creds.Host, strconv.Itoa(c.creds.Port))
	dialer := net.Dialer{Timeout: c.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return newError(constants.ErrCodeTransportError, "failed to reach "+addr, err)
	}

	// the SSH handshake does not observe ctx, so bound it with a deadline
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return newError(constants.ErrCodeAuthenticationFailed, "ssh handshake failed", err)
	}
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(sshConn, chans, reqs)
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return newError(constants.ErrCodeTransportError, "failed to start sftp subsystem", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		// force-closed while the handshake was in flight
		client.Close()
		sshClient.Close()
		return newError(constants.ErrCodeTimeout, "connection closed during connect", context.Canceled)
	}
	c.sshClient = sshClient
	c.client = client
	return nil
}

func (c *SFTPConnector) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if c.creds.PrivateKey != "" {
		var signer ssh.Signer
		var err error
		if c.creds.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase([]byte(c.creds.PrivateKey), []byte(c.creds.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey([]byte(c.creds.PrivateKey))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if c.creds.Password != "" {
		auth = append(auth, ssh.Password(c.creds.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if c.creds.HostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(c.creds.HostKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(pub)
	} else {
		logging.Warn("SFTP host key not pinned, accepting any server key", "host", c.creds.Host)
	}

	return &ssh.ClientConfig{
		User:            c.creds.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.opts.ConnectTimeout,
	}, nil
}

func (c *SFTPConnector) Probe(ctx context.Context) (map[string]any, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	dir := c.creds.RemotePath
	if dir == "" {
		dir = "."
	}
	infos, err := c.client.ReadDir(dir)
	if err != nil {
		return nil, newError(constants.ErrCodePathNotFound, "failed to list "+dir, err)
	}

	wd, _ := c.client.Getwd()
	return map[string]any{
		"workingDirectory": wd,
		"path":             dir,
		"entries":          len(infos),
	}, nil
}

func (c *SFTPConnector) List(ctx context.Context, dir string) ([]Entry, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	infos, err := c.client.ReadDir(dir)
	if err != nil {
		return nil, wrapFSError("failed to list "+dir, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, entryFromInfo(path.Join(dir, info.Name()), info))
	}
	return entries, nil
}

func (c *SFTPConnector) Stat(ctx context.Context, p string) (*Entry, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	info, err := c.client.Stat(p)
	if err != nil {
		return nil, wrapFSError("failed to stat "+p, err)
	}
	e := entryFromInfo(p, info)
	return &e, nil
}

func (c *SFTPConnector) Fetch(ctx context.Context, p string) (*Payload, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	f, err := c.client.Open(p)
	if err != nil {
		return nil, wrapFSError("failed to open "+p, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return &Payload{Name: path.Base(p), Format: FormatOf(p), Size: size, Body: f}, nil
}

func (c *SFTPConnector) Delete(ctx context.Context, p string) error {
	if c.client == nil {
		return ErrNotConnected
	}
	if err := c.client.Remove(p); err != nil {
		return wrapFSError("failed to delete "+p, err)
	}
	return nil
}

func (c *SFTPConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	var firstErr error
	if c.client != nil {
		firstErr = c.client.Close()
		c.client = nil
	}
	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.sshClient = nil
	}
	return firstErr
}

func entryFromInfo(p string, info os.FileInfo) Entry {
	return Entry{
		Name:       info.Name(),
		Path:       p,
		IsFile:     info.Mode().IsRegular(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

func wrapFSError(message string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return newError(constants.ErrCodePathNotFound, message, ErrNotFound)
	}
	return newError(constants.ErrCodeTransportError, message, err)
}
