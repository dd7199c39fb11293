package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/textproto"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"golang.org/x/time/rate"
)

// maxAttempts is one try plus one retry after a connection failure.
const maxAttempts = 2

// cleanupTimeout bounds removal of a staged object after a failure.
const cleanupTimeout = 10 * time.Second

// Uploader transfers images to the remote target.
type Uploader struct {
	cfg       Config
	connector Connector
	limiter   *rate.Limiter
	logger    *slog.Logger
	newID     func() string
}

// New creates an Uploader. A nil logger uses slog.Default().
func New(cfg Config, connector Connector, logger *slog.Logger) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload config: %w", err)
	}
	if connector == nil {
		return nil, errors.New("connector is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	burst := cfg.MaxConcurrentUploads
	if cfg.ConnectRate > 0 {
		limit = rate.Limit(cfg.ConnectRate)
	}

	return &Uploader{
		cfg:       cfg,
		connector: connector,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
		newID:     uuid.NewString,
	}, nil
}

// Config returns the uploader's configuration.
func (u *Uploader) Config() Config {
	return u.cfg
}

// Upload transfers the image of one pair and reports the outcome. It never
// returns an error: failures are categorized in the outcome.
func (u *Uploader) Upload(ctx context.Context, pair models.Pair) models.UploadOutcome {
	name := RemoteFilename(pair.Reference.NormalizedCode, pair.Image.DeclaredExtension)
	outcome := models.UploadOutcome{
		Pair:           pair,
		Row:            pair.Reference.Row,
		RemoteFilename: name,
		RemoteURL:      PublicURL(u.cfg.PublicBaseURL, name),
	}
	logger := u.logger.With("ref", pair.Reference.NormalizedCode, "row", pair.Reference.Row)

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt
		err = u.attempt(ctx, name, pair.Image.Bytes)
		if err == nil {
			outcome.Status = models.StatusSuccess
			logger.Info("image uploaded", "name", name, "attempts", attempt)
			return outcome
		}
		if ctx.Err() != nil || !IsRetryable(err) || attempt == maxAttempts {
			break
		}
		logger.Warn("upload attempt failed, retrying", "error", err)
	}

	if ctx.Err() != nil && CategoryOf(err) != TransferFailure {
		err = &Error{Category: TransferFailure, Op: "upload", Err: fmt.Errorf("abandoned: %w", ctx.Err())}
	}
	return failed(outcome, err, logger)
}

func failed(outcome models.UploadOutcome, err error, logger *slog.Logger) models.UploadOutcome {
	outcome.Status = models.StatusFailed
	outcome.Category = string(CategoryOf(err))
	outcome.Error = err.Error()
	logger.Warn("image upload failed", "name", outcome.RemoteFilename, "category", outcome.Category, "error", err)
	return outcome
}

// attempt runs one connect, login, mkdir and transfer sequence on a fresh session.
func (u *Uploader) attempt(ctx context.Context, name string, data []byte) error {
	if err := u.limiter.Wait(ctx); err != nil {
		return wrapError(TransferFailure, false, "wait", err)
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.UploadTimeout)
	defer cancel()

	sess, err := u.connector.Connect(ctx, u.cfg.Host, u.cfg.Port)
	if err != nil {
		return wrapError(ConnectFailure, true, "connect", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			u.logger.Debug("close session", "error", cerr)
		}
	}()

	if err := sess.Login(ctx, u.cfg.User, u.cfg.Password); err != nil {
		return loginError(err)
	}

	if err := ensureDir(ctx, sess, u.cfg.RemoteBaseDir); err != nil {
		return err
	}
	return u.store(ctx, sess, name, data)
}

// loginError classifies a failed login. Refused credentials are final; a
// dropped connection or a transient 4xx reply such as 421 gets the retry.
func loginError(err error) error {
	var tpErr *textproto.Error
	var netErr net.Error
	switch {
	case isFTPAuthError(err):
		return wrapError(AuthFailure, false, "login", err)
	case errors.As(err, &tpErr) && tpErr.Code >= 400 && tpErr.Code < 500,
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		return wrapError(ConnectFailure, true, "login", err)
	}
	return wrapError(AuthFailure, false, "login", err)
}

// ensureDir creates every level of dir. Existing levels are not an error.
func ensureDir(ctx context.Context, sess Session, dir string) error {
	for _, seg := range dirSegments(dir) {
		if err := sess.MakeDir(ctx, seg); err != nil && !errors.Is(err, ErrExists) {
			return wrapError(DirectoryFailure, false, "mkdir "+seg, err)
		}
	}
	return nil
}

// store writes data under a staging name, checks its size and renames it
// into place. The staged object is removed on any failure.
func (u *Uploader) store(ctx context.Context, sess Session, name string, data []byte) (err error) {
	final := path.Join(u.cfg.RemoteBaseDir, name)
	staged := path.Join(u.cfg.RemoteBaseDir, tempName(name, u.newID()))
	size := int64(len(data))

	defer func() {
		if err == nil {
			return
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if derr := sess.Delete(cctx, staged); derr != nil {
			u.logger.Debug("remove staged object", "path", staged, "error", derr)
		}
	}()

	if err := sess.Put(ctx, staged, bytes.NewReader(data), size); err != nil {
		return wrapError(TransferFailure, false, "put", err)
	}

	stored, err := sess.Size(ctx, staged)
	switch {
	case err == nil && stored != size:
		return wrapError(TransferFailure, false, "verify", fmt.Errorf("%w: sent %d bytes, stored %d", ErrSizeMismatch, size, stored))
	case err != nil && !errors.Is(err, ErrUnsupported):
		u.logger.Debug("size check unavailable", "path", staged, "error", err)
	}

	if err := sess.Rename(ctx, staged, final); err != nil {
		// Some servers refuse to rename onto an existing file. The published
		// object is moved aside and put back if the second rename fails.
		return u.replace(ctx, sess, staged, final, name, err)
	}
	return nil
}

func (u *Uploader) replace(ctx context.Context, sess Session, staged, final, name string, renameErr error) error {
	backup := path.Join(u.cfg.RemoteBaseDir, backupName(name, u.newID()))
	if err := sess.Rename(ctx, final, backup); err != nil {
		return wrapError(TransferFailure, false, "rename", renameErr)
	}

	if err := sess.Rename(ctx, staged, final); err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if rerr := sess.Rename(cctx, backup, final); rerr != nil {
			u.logger.Error("published object not restored", "path", final, "backup", backup, "error", rerr)
		}
		return wrapError(TransferFailure, false, "rename", err)
	}

	if err := sess.Delete(ctx, backup); err != nil {
		u.logger.Warn("remove replaced object", "path", backup, "error", err)
	}
	return nil
}
