// Package attachments uploads contact-form files and proposal documents.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultMaxBytes is the per-file upload limit.
const DefaultMaxBytes int64 = 5 * 1024 * 1024

var ErrTooLarge = errors.New("attachment exceeds size limit")

// File is one upload candidate.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploaded describes a stored object.
type Uploaded struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Store saves a file under owner and returns its public location.
type Store interface {
	Upload(ctx context.Context, owner string, file File) (Uploaded, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds uploads/<owner>/<unixnano>_<name>.
func ObjectKey(owner, name string, at time.Time) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	if owner = unsafeChars.ReplaceAllString(owner, "_"); owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("uploads/%s/%d_%s", owner, at.UnixNano(), name)
}

// ==========================
// S3
// ==========================

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	api      S3API
	bucket   string
	baseURL  string
	maxBytes int64
	now      func() time.Time
}

// NewS3Store uploads into bucket. Object URLs are built from publicBaseURL,
// or the virtual-hosted bucket URL when it is empty.
func NewS3Store(api S3API, bucket, region, publicBaseURL string, maxBytes int64) *S3Store {
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &S3Store{
		api:      api,
		bucket:   bucket,
		baseURL:  strings.TrimRight(publicBaseURL, "/"),
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (s *S3Store) Upload(ctx context.Context, owner string, file File) (Uploaded, error) {
	if file.Size > s.maxBytes {
		return Uploaded{}, ErrTooLarge
	}
	key := ObjectKey(owner, file.Name, s.now())

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file.Body,
	}
	if file.ContentType != "" {
		input.ContentType = aws.String(file.ContentType)
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return Uploaded{}, apperrors.NewAttachmentUploadError(file.Name, err)
	}
	return Uploaded{Name: file.Name, Key: key, URL: s.baseURL + "/" + key, Size: file.Size}, nil
}

// ==========================
// Memory
// ==========================

// MemoryStore keeps uploads in process and hands out memory:// URLs.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	maxBytes int64
	now      func() time.Time
}

func NewMemoryStore(maxBytes int64) *MemoryStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &MemoryStore{objects: make(map[string][]byte), maxBytes: maxBytes, now: time.Now}
}

func (m *MemoryStore) Upload(ctx context.Context, owner string, file File) (Uploaded, error) {
	if file.Size > m.maxBytes {
		return Uploaded{}, ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file.Body, m.maxBytes+1))
	if err != nil {
		return Uploaded{}, apperrors.NewAttachmentUploadError(file.Name, err)
	}
	if int64(len(data)) > m.maxBytes {
		return Uploaded{}, ErrTooLarge
	}

	key := ObjectKey(owner, file.Name, m.now())
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return Uploaded{Name: file.Name, Key: key, URL: "memory://" + key, Size: int64(len(data))}, nil
}

// Object returns a stored object by key.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// ==========================
// Batch
// ==========================

// UploadAll uploads every file, skipping oversized ones. Any other failure
// aborts the batch.
func UploadAll(ctx context.Context, store Store, owner string, files []File, log logger.Logger) ([]Uploaded, []string, error) {
	var (
		done    []Uploaded
		skipped []string
	)
	for _, f := range files {
		up, err := store.Upload(ctx, owner, f)
		if errors.Is(err, ErrTooLarge) {
			log.Warn("skipping oversized attachment", map[string]interface{}{"file": f.Name, "size": f.Size})
			skipped = append(skipped, f.Name)
			continue
		}
		if err != nil {
			return done, skipped, err
		}
		done = append(done, up)
	}
	return done, skipped, nil
}
