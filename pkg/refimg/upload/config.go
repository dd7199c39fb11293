package upload

import (
	"errors"
	"fmt"
	"time"
)

// Backend names.
const (
	BackendFTP   = "ftp"
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Config describes the remote target and the upload limits.
type Config struct {
	Backend  string
	Host     string
	Port     int
	User     string
	Password string

	// RemoteBaseDir is created on the target before the first transfer.
	RemoteBaseDir string
	// PublicBaseURL is the public address of RemoteBaseDir.
	PublicBaseURL string

	// UploadTimeout bounds one attempt: connect, login, mkdir and transfer.
	UploadTimeout time.Duration
	// MaxConcurrentUploads is the worker pool size.
	MaxConcurrentUploads int
	// ConnectRate limits new connections per second. Zero means unlimited.
	ConnectRate float64

	// Bucket and UseSSL apply to the s3 backend.
	Bucket string
	UseSSL bool
	Region string

	// LocalRoot is the directory the local backend writes under.
	LocalRoot string

	// DisableEPSV forces PASV on the ftp backend.
	DisableEPSV bool
}

// DefaultConfig returns the default FTP settings.
func DefaultConfig() Config {
	return Config{
		Backend:              BackendFTP,
		Port:                 21,
		RemoteBaseDir:        "public_html/images/products",
		UploadTimeout:        300 * time.Second,
		MaxConcurrentUploads: 4,
	}
}

// Validate reports impossible values.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendFTP, BackendS3:
		if c.Host == "" {
			errs = append(errs, fmt.Errorf("%s backend requires a host", c.Backend))
		}
	case BackendLocal:
		if c.LocalRoot == "" {
			errs = append(errs, errors.New("local backend requires a root directory"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if c.Backend == BackendS3 && c.Bucket == "" {
		errs = append(errs, errors.New("s3 backend requires a bucket"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConcurrentUploads < 1 {
		errs = append(errs, fmt.Errorf("max concurrent uploads must be at least 1, got %d", c.MaxConcurrentUploads))
	}
	if c.UploadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("upload timeout must be positive, got %s", c.UploadTimeout))
	}
	if c.ConnectRate < 0 {
		errs = append(errs, fmt.Errorf("connect rate must not be negative, got %v", c.ConnectRate))
	}
	return errors.Join(errs...)
}

// NewConnector returns the Connector for the configured backend.
func NewConnector(cfg Config) (Connector, error) {
	switch cfg.Backend {
	case BackendFTP:
		return &FTPConnector{DisableEPSV: cfg.DisableEPSV}, nil
	case BackendS3:
		return &S3Connector{Bucket: cfg.Bucket, UseSSL: cfg.UseSSL, Region: cfg.Region}, nil
	case BackendLocal:
		return &LocalConnector{Root: cfg.LocalRoot}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
