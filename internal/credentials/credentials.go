package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/cruciblehq/shipyard/internal/config"
)

const redacted = "[redacted]"

// Yields a signing credential.
type Source interface {
	Acquire(ctx context.Context) (Credential, error)
}

// A secret value that formats as [redacted].
type Credential struct {
	value string
}

// Wraps a secret value.
func NewCredential(value string) Credential {
	return Credential{value: value}
}

// Returns the secret.
func (c Credential) Value() string { return c.value }

func (c Credential) IsZero() bool { return c.value == "" }

func (c Credential) String() string { return redacted }

func (c Credential) GoString() string { return redacted }

func (c Credential) LogValue() slog.Value { return slog.StringValue(redacted) }

// Returns the source selected by cfg.Source.
func New(ctx context.Context, cfg config.CredentialsConfig) (Source, error) {
	switch cfg.Source {
	case "", "env":
		return &Env{Name: cfg.Name}, nil
	case "file":
		return &File{Path: cfg.Name}, nil
	case "secretsmanager":
		return NewSecretsManager(ctx, cfg)
	}
	return nil, fmt.Errorf("%w: %q", ErrSource, cfg.Source)
}

// Reads the credential from an environment variable.
type Env struct {
	Name string
}

func (e *Env) Acquire(context.Context) (Credential, error) {
	v, ok := os.LookupEnv(e.Name)
	if !ok || v == "" {
		return Credential{}, fmt.Errorf("%w: environment variable %s", ErrNotFound, e.Name)
	}
	return NewCredential(v), nil
}

// Reads the credential from a file. Trailing newlines are dropped.
type File struct {
	Path string
}

func (f *File) Acquire(context.Context) (Credential, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credential{}, wrap(ErrNotFound, err)
	}
	if err != nil {
		return Credential{}, wrap(ErrUnavailable, err)
	}

	v := string(bytes.TrimRight(data, "\r\n"))
	if v == "" {
		return Credential{}, fmt.Errorf("%w: %s is empty", ErrNotFound, f.Path)
	}
	return NewCredential(v), nil
}
