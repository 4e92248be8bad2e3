package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/types"
)

// Connect opens an SSH connection using user/password or user/key auth.
func Connect(host types.Host) (*ssh.Client, error) {
	var authMethods []ssh.AuthMethod

	if host.Password != "" {
		authMethods = append(authMethods, ssh.Password(host.Password))
	}

	if host.KeyPath != "" {
		key, err := os.ReadFile(host.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	// Fall back to the default key when none is configured
	if host.KeyPath == "" {
		if signer, path, err := defaultSigner(); err == nil {
			authMethods = append(authMethods, ssh.PublicKeys(signer))
			log.Debug().Str("key", path).Msg("using default SSH key")
		} else {
			log.Debug().Err(err).Msg("default SSH key unavailable")
		}
	}

	if sshAgent, err := net.Dial("unix", os.Getenv("SSH_AUTH_SOCK")); err == nil {
		authMethods = append(authMethods, ssh.PublicKeysCallback(agent.NewClient(sshAgent).Signers))
		log.Debug().Msg("using SSH agent")
	} else {
		log.Debug().Err(err).Msg("SSH agent unavailable")
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication methods available")
	}

	hostKeyCallback, err := hostKeys(host)
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            host.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	port := host.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host.Name, fmt.Sprint(port))

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}
	return client, nil
}

func defaultSigner() (ssh.Signer, string, error) {
	usr, err := user.Current()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current user: %w", err)
	}
	path := filepath.Join(usr.HomeDir, ".ssh", "id_rsa")
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	return signer, path, err
}

func hostKeys(host types.Host) (ssh.HostKeyCallback, error) {
	if host.KnownHosts == "" {
		log.Warn().Str("host", host.Name).Msg("no known_hosts file configured, host key not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(host.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return cb, nil
}

// Executor runs commands on the remote host, one session per command.
type Executor struct {
	Client  *ssh.Client
	Timeout time.Duration
}

func (e *Executor) Run(ctx context.Context, cmd shell.Command) (shell.Outcome, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = shell.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := e.Client.NewSession()
	if err != nil {
		return shell.Outcome{}, &shell.LaunchError{Command: cmd.Name, Err: err}
	}
	defer session.Close()

	var outBuf, errBuf bytes.Buffer
	session.Stdout = &outBuf
	session.Stderr = &errBuf

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd.Line) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return shell.Outcome{}, &shell.LaunchError{Command: cmd.Name, Err: ctx.Err()}
	case err = <-done:
	}

	out := shell.Outcome{Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes()}
	if err == nil {
		return out, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		out.ExitStatus = exitErr.ExitStatus()
		return out, nil
	}
	return shell.Outcome{}, &shell.LaunchError{Command: cmd.Name, Err: err}
}

// FS reads and appends remote files over SFTP.
type FS struct {
	client *sftp.Client
}

// NewFS opens an SFTP subsystem on sshClient.
func NewFS(sshClient *ssh.Client) (*FS, error) {
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, err
	}
	return &FS{client: sftpClient}, nil
}

func (f *FS) ReadFile(path string) ([]byte, error) {
	src, err := f.client.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(src)
}

func (f *FS) AppendFile(path string, data []byte) error {
	dst, err := f.client.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE)
	if err != nil {
		return err
	}
	defer dst.Close()

	// Not every server honours the append flag.
	if _, err := dst.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	_, err = dst.Write(data)
	return err
}

// Close ends the SFTP session.
func (f *FS) Close() error { return f.client.Close() }
