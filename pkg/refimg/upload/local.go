package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalConnector stores files under a directory on the local filesystem.
// It backs dry runs and tests.
type LocalConnector struct {
	Root string
}

// Connect checks that the root directory exists. host and port are ignored.
func (c *LocalConnector) Connect(ctx context.Context, host string, port int) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return &localSession{root: root}, nil
}

type localSession struct {
	root string
}

// resolve maps a remote path under the root. Paths that escape it are refused.
func (s *localSession) resolve(remotePath string) (string, error) {
	rel := filepath.FromSlash(strings.TrimPrefix(remotePath, "/"))
	full := filepath.Join(s.root, rel)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the upload root", remotePath)
	}
	return full, nil
}

func (s *localSession) Login(ctx context.Context, user, password string) error {
	return ctx.Err()
}

func (s *localSession) MakeDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(dir)
	if err != nil {
		return err
	}
	if err := os.Mkdir(full, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", dir, ErrExists)
		}
		return err
	}
	return nil
}

func (s *localSession) Put(ctx context.Context, remotePath string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(remotePath)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *localSession) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.resolve(from)
	if err != nil {
		return err
	}
	dst, err := s.resolve(to)
	if err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (s *localSession) Delete(ctx context.Context, remotePath string) error {
	full, err := s.resolve(remotePath)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

func (s *localSession) Size(ctx context.Context, remotePath string) (int64, error) {
	full, err := s.resolve(remotePath)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (s *localSession) Close() error {
	return nil
}
