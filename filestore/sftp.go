package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPBackend stores objects on a remote host over SFTP.
type SFTPBackend struct {
	client   *sftp.Client
	conn     *ssh.Client
	basePath string
}

// SFTPConfig holds SFTP connection configuration
type SFTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string // or use KeyFile
	KeyFile  string
	HostKey  string // SSH host public key for verification
	BasePath string
}

// clientConfig builds the SSH client configuration. A pinned host key takes
// precedence over ~/.ssh/known_hosts.
func (c SFTPConfig) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	switch {
	case c.KeyFile != "":
		keyBytes, err := os.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		key, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = []ssh.AuthMethod{ssh.PublicKeys(key)}
	case c.Password != "":
		auth = []ssh.AuthMethod{ssh.Password(c.Password)}
	default:
		return nil, errors.New("either password or key file must be provided")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if c.HostKey != "" {
		hostKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(c.HostKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse host key: %w", err)
		}
		hostKeyCallback = ssh.FixedHostKey(hostKey)
	} else {
		callback, err := knownhosts.New(os.ExpandEnv("$HOME/.ssh/known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            c.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// NewSFTPBackend dials the SSH server and opens an SFTP session.
func NewSFTPBackend(config SFTPConfig) (*SFTPBackend, error) {
	sshConfig, err := config.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SSH server: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &SFTPBackend{
		client:   sftpClient,
		conn:     sshClient,
		basePath: config.BasePath,
	}, nil
}

func (s *SFTPBackend) Name() string { return BackendSFTP }

func (s *SFTPBackend) remotePath(key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	return path.Join(s.basePath, cleaned), nil
}

func (s *SFTPBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	fullPath, err := s.remotePath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := path.Dir(fullPath)
	if err := s.client.MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := s.client.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", fullPath, err)
	}
	if _, err := file.ReadFrom(r); err != nil {
		file.Close()
		s.client.Remove(fullPath)
		return err
	}
	return file.Close()
}

func (s *SFTPBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.remotePath(key)
	if err != nil {
		return nil, err
	}
	f, err := s.client.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SFTPBackend) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.remotePath(key)
	if err != nil {
		return false, err
	}
	if _, err := s.client.Stat(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SFTPBackend) Delete(ctx context.Context, key string) error {
	fullPath, err := s.remotePath(key)
	if err != nil {
		return err
	}
	if err := s.client.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *SFTPBackend) List(ctx context.Context, prefix string) ([]string, error) {
	root := s.basePath
	if prefix != "" {
		p, err := s.remotePath(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}
	if root == "" {
		root = "."
	}

	var keys []string
	walker := s.client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if walker.Stat().IsDir() {
			continue
		}
		key := walker.Path()
		if s.basePath != "" {
			key = strings.TrimPrefix(key, strings.TrimSuffix(s.basePath, "/")+"/")
		}
		keys = append(keys, strings.TrimPrefix(key, "./"))
	}
	return keys, nil
}

// Close closes the SFTP session and the SSH connection.
func (s *SFTPBackend) Close() error {
	err := s.client.Close()
	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
