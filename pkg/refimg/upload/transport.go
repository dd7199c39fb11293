package upload

import (
	"context"
	"io"
)

// Connector opens sessions against a remote target.
type Connector interface {
	Connect(ctx context.Context, host string, port int) (Session, error)
}

// Session is one authenticated connection. A Session is used by a single
// goroutine and closed when the upload that opened it finishes.
//
// Paths use forward slashes. Operations must return once ctx is done.
type Session interface {
	Login(ctx context.Context, user, password string) error
	// MakeDir creates one directory level. It returns an error wrapping
	// ErrExists when the directory is already present.
	MakeDir(ctx context.Context, dir string) error
	// Put stores r in binary mode.
	Put(ctx context.Context, remotePath string, r io.Reader, size int64) error
	// Rename replaces to with from.
	Rename(ctx context.Context, from, to string) error
	Delete(ctx context.Context, remotePath string) error
	// Size returns the stored size, or an error wrapping ErrUnsupported.
	Size(ctx context.Context, remotePath string) (int64, error)
	Close() error
}
