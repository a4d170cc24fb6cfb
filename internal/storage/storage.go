package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Storage abstracts where event documents physically live.
type Storage interface {
	// Save stores a file at the given path, overwriting any existing object.
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error

	// Open returns the file contents for streaming to the client.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a file is present at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// SignedURL returns a time-limited download URL for private files.
	// Backends without signing support return a plain URL.
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type Config struct {
	Type      string `yaml:"type"` // local or cloudflare_r2
	BasePath  string `yaml:"base_path"`
	BaseURL   string `yaml:"base_url"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
