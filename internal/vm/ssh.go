package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/cruciblehq/shipyard/internal/backend"
)

const (
	dialTimeout = 10 * time.Second
	stderrTail  = 4096
)

// An SSH connection to the guest.
type sshShell struct {
	client *ssh.Client
}

var _ shell = (*sshShell)(nil)

// Opens an SSH connection with public key authentication.
func dialSSH(ctx context.Context, cfg Config) (*sshShell, error) {
	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", cfg.SSHAddr)
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, cfg.SSHAddr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &sshShell{client: ssh.NewClient(c, chans, reqs)}, nil
}

// Builds the client configuration from the key and known_hosts files.
func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	key, err := os.ReadFile(cfg.SSHKey)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key: %w", err)
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		hostKey, err = knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
	} else {
		slog.Warn("guest host key not verified", "name", cfg.Name)
	}

	return &ssh.ClientConfig{
		User:            cfg.SSHUser,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	}, nil
}

// Runs a command in a new session and waits for it.
//
// A remote non-zero exit is reported through exitCode with a nil error.
func (s *sshShell) Exec(ctx context.Context, command string) (int, string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return -1, "", err
	}
	defer sess.Close()

	logw := backend.NewLineLogger("ssh")
	defer logw.Flush()
	tail := backend.NewTailBuffer(stderrTail)

	sess.Stdout = logw
	sess.Stderr = io.MultiWriter(logw, tail)

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return -1, tail.String(), ctx.Err()
	case err = <-done:
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), tail.String(), nil
	}
	if err != nil {
		return -1, tail.String(), err
	}
	return 0, tail.String(), nil
}

func (s *sshShell) Close() error {
	return s.client.Close()
}
