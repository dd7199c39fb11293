package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Connector opens sessions against an S3-compatible object store.
// Directories are key prefixes and need no creation.
type S3Connector struct {
	Bucket string
	UseSSL bool
	Region string
}

// Connect records the endpoint. The client is created at Login, when the
// credentials are known.
func (c *S3Connector) Connect(ctx context.Context, host string, port int) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	endpoint := host
	if port > 0 {
		endpoint = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return &s3Session{endpoint: endpoint, cfg: c}, nil
}

type s3Session struct {
	endpoint string
	cfg      *S3Connector
	client   *minio.Client
}

// Login creates the client and checks the bucket, which is the first call
// that proves the credentials.
func (s *s3Session) Login(ctx context.Context, user, password string) error {
	client, err := minio.New(s.endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(user, password, ""),
		Secure: s.cfg.UseSSL,
		Region: s.cfg.Region,
	})
	if err != nil {
		return wrapError(ConnectFailure, false, "client", err)
	}

	exists, err := client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return classifyS3Error("login", err)
	}
	if !exists {
		return wrapError(DirectoryFailure, false, "login", fmt.Errorf("bucket %q does not exist", s.cfg.Bucket))
	}
	s.client = client
	return nil
}

func (s *s3Session) MakeDir(ctx context.Context, dir string) error {
	return ctx.Err()
}

func (s *s3Session) Put(ctx context.Context, remotePath string, r io.Reader, size int64) error {
	contentType := mime.TypeByExtension(path.Ext(remotePath))
	if contentType == "" || strings.HasSuffix(remotePath, ".part") {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, objectKey(remotePath), r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classifyS3Error("put", err)
	}
	return nil
}

// Rename copies the object and removes the source; S3 has no rename.
func (s *s3Session) Rename(ctx context.Context, from, to string) error {
	dst := minio.CopyDestOptions{Bucket: s.cfg.Bucket, Object: objectKey(to)}
	if ct := mime.TypeByExtension(path.Ext(to)); ct != "" {
		dst.ReplaceMetadata = true
		dst.UserMetadata = map[string]string{"Content-Type": ct}
	}
	src := minio.CopySrcOptions{Bucket: s.cfg.Bucket, Object: objectKey(from)}
	if _, err := s.client.CopyObject(ctx, dst, src); err != nil {
		return classifyS3Error("copy", err)
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectKey(from), minio.RemoveObjectOptions{}); err != nil {
		return classifyS3Error("remove", err)
	}
	return nil
}

func (s *s3Session) Delete(ctx context.Context, remotePath string) error {
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, objectKey(remotePath), minio.RemoveObjectOptions{}); err != nil {
		return classifyS3Error("remove", err)
	}
	return nil
}

func (s *s3Session) Size(ctx context.Context, remotePath string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.cfg.Bucket, objectKey(remotePath), minio.StatObjectOptions{})
	if err != nil {
		return 0, classifyS3Error("stat", err)
	}
	return info.Size, nil
}

func (s *s3Session) Close() error {
	return nil
}

func objectKey(p string) string {
	return strings.TrimPrefix(path.Clean(p), "/")
}

// classifyS3Error converts minio-go errors to categorized errors.
func classifyS3Error(op string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied":
		return wrapError(AuthFailure, false, op, err)
	case "NoSuchBucket":
		return wrapError(DirectoryFailure, false, op, err)
	case "NoSuchKey", "EntityTooLarge", "InvalidDigest", "BadDigest":
		return wrapError(TransferFailure, false, op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || resp.StatusCode >= 500 {
		return wrapError(ConnectFailure, true, op, err)
	}
	return wrapError(TransferFailure, false, op, err)
}
