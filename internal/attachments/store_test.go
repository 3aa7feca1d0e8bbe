package attachments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	apperrors "broker-backoffice/internal/common/errors"
	"broker-backoffice/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3 struct {
	mock.Mock
}

func (m *MockS3) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, input)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var fixedNow = time.Unix(1700000000, 42)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		owner, name, want string
	}{
		{"maria@example.com", "cnh.pdf", "uploads/maria_example.com/1700000000000000042_cnh.pdf"},
		{"", "../../etc/passwd", "uploads/anonymous/1700000000000000042_passwd"},
		{"u1", "C:\\docs\\apólice final.pdf", "uploads/u1/1700000000000000042_ap_lice_final.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectKey(tt.owner, tt.name, fixedNow))
		})
	}
}

func TestS3Store_Upload(t *testing.T) {
	api := new(MockS3)
	store := NewS3Store(api, "broker-uploads", "sa-east-1", "", 0)
	store.now = func() time.Time { return fixedNow }

	api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "broker-uploads" &&
			*in.Key == "uploads/u1/1700000000000000042_cnh.pdf" &&
			*in.ContentType == "application/pdf"
	})).Return(&s3.PutObjectOutput{}, nil)

	up, err := store.Upload(context.Background(), "u1", File{Name: "cnh.pdf", ContentType: "application/pdf", Size: 3, Body: strings.NewReader("pdf")})
	require.NoError(t, err)
	assert.Equal(t, "https://broker-uploads.s3.sa-east-1.amazonaws.com/uploads/u1/1700000000000000042_cnh.pdf", up.URL)
	api.AssertExpectations(t)
}

func TestS3Store_SkipsOversized(t *testing.T) {
	api := new(MockS3)
	store := NewS3Store(api, "b", "sa-east-1", "https://cdn.example.com/", 0)

	_, err := store.Upload(context.Background(), "u1", File{Name: "big.zip", Size: DefaultMaxBytes + 1, Body: bytes.NewReader(nil)})
	assert.ErrorIs(t, err, ErrTooLarge)
	api.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
}

func TestS3Store_UploadFailure(t *testing.T) {
	api := new(MockS3)
	store := NewS3Store(api, "b", "sa-east-1", "https://cdn.example.com", 0)
	api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied"))

	_, err := store.Upload(context.Background(), "u1", File{Name: "a.pdf", Size: 1, Body: strings.NewReader("a")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAttachmentUploadFailed))
}

func TestMemoryStore_Upload(t *testing.T) {
	store := NewMemoryStore(4)

	up, err := store.Upload(context.Background(), "u1", File{Name: "a.txt", Body: strings.NewReader("abcd")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.URL, "memory://uploads/u1/"))
	data, ok := store.Object(up.Key)
	require.True(t, ok)
	assert.Equal(t, "abcd", string(data))

	// size unknown up front, body larger than the limit
	_, err = store.Upload(context.Background(), "u1", File{Name: "b.txt", Body: strings.NewReader("abcde")})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadAll_SkipsOversized(t *testing.T) {
	store := NewMemoryStore(4)
	files := []File{
		{Name: "ok.txt", Size: 2, Body: strings.NewReader("ok")},
		{Name: "big.txt", Size: 10, Body: strings.NewReader("0123456789")},
		{Name: "ok2.txt", Size: 3, Body: strings.NewReader("ok2")},
	}

	done, skipped, err := UploadAll(context.Background(), store, "u1", files, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.Equal(t, []string{"big.txt"}, skipped)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestUploadAll_AbortsOnFailure(t *testing.T) {
	store := NewMemoryStore(0)
	files := []File{
		{Name: "ok.txt", Body: strings.NewReader("ok")},
		{Name: "bad.txt", Body: failingReader{}},
		{Name: "never.txt", Body: strings.NewReader("x")},
	}

	done, _, err := UploadAll(context.Background(), store, "u1", files, logger.NewTestLogger(t))
	assert.Error(t, err)
	assert.Len(t, done, 1)
}
