package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpDefaultPort = 21

// FTP reply codes.
const (
	ftpSyntaxError    = 500
	ftpNotImplemented = 502
	ftpNeedAccount    = 332
	ftpNotLoggedIn    = 530
)

// FTPConnector opens FTP sessions with jlaffaye/ftp.
type FTPConnector struct {
	// DisableEPSV forces PASV for servers that mishandle EPSV.
	DisableEPSV bool
}

// Connect dials the control connection. Data connections opened later by the
// session are tracked so that they can be torn down when ctx is done.
func (c *FTPConnector) Connect(ctx context.Context, host string, port int) (Session, error) {
	if port == 0 {
		port = ftpDefaultPort
	}
	s := &ftpSession{}
	dialer := &net.Dialer{}

	opts := []ftp.DialOption{
		ftp.DialWithContext(ctx),
		ftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, address)
			if err != nil {
				return nil, err
			}
			s.track(conn)
			return conn, nil
		}),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, ftp.DialWithTimeout(time.Until(deadline)))
	}
	if c.DisableEPSV {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}

	conn, err := ftp.Dial(net.JoinHostPort(host, strconv.Itoa(port)), opts...)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	s.conn = conn
	s.stop = context.AfterFunc(ctx, s.closeAll)
	return s, nil
}

type ftpSession struct {
	conn *ftp.ServerConn
	stop func() bool

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
}

func (s *ftpSession) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return
	}
	s.conns = append(s.conns, conn)
}

// closeAll closes every network connection of the session, which unblocks
// any command in progress.
func (s *ftpSession) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

// guard runs op and reports ctx's error instead of the one caused by
// closing the connection.
func (s *ftpSession) guard(ctx context.Context, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := op()
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

func (s *ftpSession) Login(ctx context.Context, user, password string) error {
	return s.guard(ctx, func() error {
		err := s.conn.Login(user, password)
		if isFTPAuthError(err) {
			return wrapError(AuthFailure, false, "login", err)
		}
		return err
	})
}

func (s *ftpSession) MakeDir(ctx context.Context, dir string) error {
	return s.guard(ctx, func() error {
		err := s.conn.MakeDir(dir)
		if err == nil {
			return nil
		}
		if s.dirExists(dir) {
			return fmt.Errorf("%s: %w", dir, ErrExists)
		}
		return err
	})
}

// dirExists probes dir by changing into it and back.
func (s *ftpSession) dirExists(dir string) bool {
	cwd, err := s.conn.CurrentDir()
	if err != nil {
		return false
	}
	if err := s.conn.ChangeDir(dir); err != nil {
		return false
	}
	return s.conn.ChangeDir(cwd) == nil
}

func (s *ftpSession) Put(ctx context.Context, remotePath string, r io.Reader, size int64) error {
	return s.guard(ctx, func() error {
		return s.conn.Stor(remotePath, r)
	})
}

func (s *ftpSession) Rename(ctx context.Context, from, to string) error {
	return s.guard(ctx, func() error {
		return s.conn.Rename(from, to)
	})
}

func (s *ftpSession) Delete(ctx context.Context, remotePath string) error {
	return s.guard(ctx, func() error {
		return s.conn.Delete(remotePath)
	})
}

func (s *ftpSession) Size(ctx context.Context, remotePath string) (int64, error) {
	var size int64
	err := s.guard(ctx, func() error {
		n, err := s.conn.FileSize(remotePath)
		if err != nil {
			var tpErr *textproto.Error
			if errors.As(err, &tpErr) && (tpErr.Code == ftpSyntaxError || tpErr.Code == ftpNotImplemented) {
				// SIZE is an extension command.
				return fmt.Errorf("%w: %v", ErrUnsupported, err)
			}
			return err
		}
		size = n
		return nil
	})
	return size, err
}

func (s *ftpSession) Close() error {
	if s.stop != nil {
		s.stop()
	}
	err := s.conn.Quit()
	s.closeAll()
	return err
}

// isFTPAuthError reports whether err is a server reply refusing credentials.
func isFTPAuthError(err error) bool {
	var tpErr *textproto.Error
	if !errors.As(err, &tpErr) {
		return false
	}
	return tpErr.Code == ftpNotLoggedIn || tpErr.Code == ftpNeedAccount
}
