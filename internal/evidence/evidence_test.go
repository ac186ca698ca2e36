package evidence_test

import (
	"context"
	"errors"
	"grievance/backend/internal/config"
	"grievance/backend/internal/evidence"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectClient struct {
	mock.Mock
}

func (m *MockObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName}, args.Error(0)
}

func (m *MockObjectClient) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectClient) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return m.Called(ctx, bucketName, opts).Error(0)
}

func (m *MockObjectClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.Called(ctx, bucketName, objectName).Error(0)
}

func TestObjectKey(t *testing.T) {
	key := evidence.ObjectKey(12, "Screenshot.PNG")
	assert.True(t, strings.HasPrefix(key, "complaints/12/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.NotEqual(t, key, evidence.ObjectKey(12, "Screenshot.PNG"))
}

func TestUpload(t *testing.T) {
	client := new(MockObjectClient)
	client.On("PutObject", mock.Anything, "evidence", mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "complaints/3/")
	}), mock.Anything, int64(5), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "application/octet-stream" && o.UserMetadata["original-name"] == "note.txt"
	})).Return(nil)

	store := evidence.NewStoreWithClient(client, "evidence", "http://minio:9000/")
	url, err := store.Upload(context.Background(), 3, "note.txt", "", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://minio:9000/evidence/complaints/3/"), url)
	client.AssertExpectations(t)
}

func TestUploadError(t *testing.T) {
	client := new(MockObjectClient)
	client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("access denied"))

	_, err := evidence.NewStoreWithClient(client, "b", "http://x").Upload(context.Background(), 1, "a", "text/plain", 1, strings.NewReader("a"))
	assert.ErrorContains(t, err, "access denied")
}

func TestEnsureBucket(t *testing.T) {
	client := new(MockObjectClient)
	client.On("BucketExists", mock.Anything, "evidence").Return(false, nil).Once()
	client.On("MakeBucket", mock.Anything, "evidence", mock.Anything).Return(nil).Once()

	store := evidence.NewStoreWithClient(client, "evidence", "http://x")
	require.NoError(t, store.EnsureBucket(context.Background()))

	client.On("BucketExists", mock.Anything, "evidence").Return(true, nil).Once()
	require.NoError(t, store.EnsureBucket(context.Background()))
	client.AssertNumberOfCalls(t, "MakeBucket", 1)
}

func TestNewStoreWithoutEndpoint(t *testing.T) {
	store, err := evidence.NewStore(&config.Config{})
	assert.NoError(t, err)
	assert.Nil(t, store)
}

func TestRemove(t *testing.T) {
	client := new(MockObjectClient)
	client.On("RemoveObject", mock.Anything, "evidence", "complaints/3/abc.txt").Return(nil).Once()

	store := evidence.NewStoreWithClient(client, "evidence", "http://minio:9000/")
	require.NoError(t, store.Remove(context.Background(), "http://minio:9000/evidence/complaints/3/abc.txt"))
	assert.Error(t, store.Remove(context.Background(), "http://elsewhere/evidence/x"))
	client.AssertExpectations(t)
}
