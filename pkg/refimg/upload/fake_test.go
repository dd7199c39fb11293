package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// fakeRemote is an in-memory remote target shared by the sessions of one test.
type fakeRemote struct {
	mu    sync.Mutex
	dirs  map[string]bool
	files map[string][]byte

	connectErrs []error // consumed one per Connect
	loginErr    error
	mkdirErr    error
	putErr      error
	putFailFor  string // fail puts whose path contains this
	sizeDelta   int64
	sizeErr     error
	renameErrs  []error // consumed one per Rename
	putDelay    time.Duration

	connects int
	inFlight int
	maxSeen  int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{dirs: map[string]bool{}, files: map[string][]byte{}}
}

func (r *fakeRemote) Connect(ctx context.Context, host string, port int) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
	if len(r.connectErrs) > 0 {
		err := r.connectErrs[0]
		r.connectErrs = r.connectErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeSession{remote: r}, nil
}

func (r *fakeRemote) file(name string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[name]
	return data, ok
}

func (r *fakeRemote) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.files {
		names = append(names, name)
	}
	return names
}

type fakeSession struct {
	remote *fakeRemote
	closed bool
}

func (s *fakeSession) Login(ctx context.Context, user, password string) error {
	return s.remote.loginErr
}

func (s *fakeSession) MakeDir(ctx context.Context, dir string) error {
	r := s.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mkdirErr != nil {
		return r.mkdirErr
	}
	if r.dirs[dir] {
		return fmt.Errorf("%s: %w", dir, ErrExists)
	}
	r.dirs[dir] = true
	return nil
}

func (s *fakeSession) Put(ctx context.Context, remotePath string, rd io.Reader, size int64) error {
	r := s.remote
	r.mu.Lock()
	r.inFlight++
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
	}
	delay, putErr := r.putDelay, r.putErr
	if r.putFailFor != "" && strings.Contains(remotePath, r.putFailFor) {
		putErr = errors.New("451 Requested action aborted")
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	data, err := io.ReadAll(rd)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if putErr != nil {
		// Leave a partial object behind, as a failing server might.
		r.files[remotePath] = data[:len(data)/2]
		return putErr
	}
	r.files[remotePath] = bytes.Clone(data)
	return nil
}

func (s *fakeSession) Rename(ctx context.Context, from, to string) error {
	r := s.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renameErrs) > 0 {
		err := r.renameErrs[0]
		r.renameErrs = r.renameErrs[1:]
		if err != nil {
			return err
		}
	}
	data, ok := r.files[from]
	if !ok {
		return errors.New("rename: source not found")
	}
	delete(r.files, from)
	r.files[to] = data
	return nil
}

func (s *fakeSession) Delete(ctx context.Context, remotePath string) error {
	r := s.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[remotePath]; !ok {
		return errors.New("delete: not found")
	}
	delete(r.files, remotePath)
	return nil
}

func (s *fakeSession) Size(ctx context.Context, remotePath string) (int64, error) {
	r := s.remote
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sizeErr != nil {
		return 0, r.sizeErr
	}
	data, ok := r.files[remotePath]
	if !ok {
		return 0, errors.New("size: not found")
	}
	return int64(len(data)) + r.sizeDelta, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func isStaged(name string) bool {
	return strings.HasSuffix(name, ".part")
}
