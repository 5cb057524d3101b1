package delivery

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Location tells the caller where a saved document ended up.
type Location struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Sink is a place documents are downloaded to.
type Sink interface {
	Save(ctx context.Context, name string, doc []byte) (Location, error)
}

// DirSink saves documents into a directory. Files appear atomically: they
// are written under a temporary name and renamed into place.
type DirSink struct {
	dir string
	log zerolog.Logger
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string, logger zerolog.Logger) (*DirSink, error) {
	if dir == "" {
		return nil, fail("open directory", fmt.Errorf("directory cannot be empty"))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fail("open directory", err)
	}
	return &DirSink{dir: dir, log: logger.With().Str("sink", "dir").Logger()}, nil
}

// Dir returns the target directory.
func (s *DirSink) Dir() string {
	return s.dir
}

// Save writes doc as name, replacing an existing file of that name.
func (s *DirSink) Save(ctx context.Context, name string, doc []byte) (Location, error) {
	if len(doc) == 0 {
		return Location{}, fail("save", ErrNoDocument)
	}
	if err := ctx.Err(); err != nil {
		return Location{}, fail("save", err)
	}
	target, err := confinedPath(s.dir, name)
	if err != nil {
		return Location{}, fail("save", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".partial-*.pdf")
	if err != nil {
		return Location{}, fail("save", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return Location{}, fail("save", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Location{}, fail("save", err)
	}
	if err := tmp.Close(); err != nil {
		return Location{}, fail("save", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return Location{}, fail("save", err)
	}
	committed = true

	s.log.Info().Str("file", target).Int("bytes", len(doc)).Msg("document saved")
	return Location{Name: name, Path: target}, nil
}

// Load reads a previously saved document back. Files larger than limit
// are refused when limit is positive.
func (s *DirSink) Load(ctx context.Context, name string, limit int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail("load", err)
	}
	target, err := confinedPath(s.dir, name)
	if err != nil {
		return nil, fail("load", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, fail("load", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fail("load", fmt.Errorf("%s is not a regular file", name))
	}
	if limit > 0 && info.Size() > limit {
		return nil, fail("load", fmt.Errorf("%s is %d bytes, limit is %d", name, info.Size(), limit))
	}
	doc, err := os.ReadFile(target)
	if err != nil {
		return nil, fail("load", err)
	}
	return doc, nil
}

// ObjectConfig configures an S3 compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
	URLExpiry time.Duration
}

// ObjectSink uploads documents to an S3 compatible bucket and hands back a
// presigned download link.
type ObjectSink struct {
	client *minio.Client
	cfg    ObjectConfig
	log    zerolog.Logger
}

// NewObjectSink creates the client. No request is made until the first
// upload or EnsureBucket.
func NewObjectSink(cfg ObjectConfig, logger zerolog.Logger) (*ObjectSink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fail("connect", fmt.Errorf("endpoint and bucket are required"))
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 24 * time.Hour
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fail("connect", fmt.Errorf("failed to create object storage client: %w", err))
	}
	return &ObjectSink{
		client: client,
		cfg:    cfg,
		log:    logger.With().Str("sink", "object").Str("bucket", cfg.Bucket).Logger(),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *ObjectSink) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fail("check bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return fail("create bucket", err)
	}
	s.log.Info().Msg("bucket created")
	return nil
}

// Save uploads doc under the configured prefix.
func (s *ObjectSink) Save(ctx context.Context, name string, doc []byte) (Location, error) {
	if len(doc) == 0 {
		return Location{}, fail("upload", ErrNoDocument)
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Location{}, fail("upload", fmt.Errorf("%w: %q", ErrInvalidName, name))
	}

	object := name
	if s.cfg.Prefix != "" {
		object = path.Join(s.cfg.Prefix, name)
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name})

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, object, bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: "application/pdf", ContentDisposition: disposition})
	if err != nil {
		return Location{}, fail("upload", err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", disposition)
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, object, s.cfg.URLExpiry, params)
	if err != nil {
		return Location{}, fail("presign", err)
	}

	s.log.Info().Str("object", object).Int("bytes", len(doc)).Msg("document uploaded")
	return Location{Name: name, Path: s.cfg.Bucket + "/" + object, URL: u.String()}, nil
}
