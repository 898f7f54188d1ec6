package promo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectGetter is a mock implementation of ObjectGetter.
type MockObjectGetter struct {
	mock.Mock
}

func (m *MockObjectGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, *params.Bucket, *params.Key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) (Set, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) (Set, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

func setWith(codes ...string) Set {
	s := newMapSet(len(codes))
	for _, c := range codes {
		s.Add(promoDef(c))
	}
	return s
}

func TestS3Loader_Load(t *testing.T) {
	client := new(MockObjectGetter)
	client.On("GetObject", mock.Anything, "promo-bucket", "promo/march.csv.gz").Return(&s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(gzipBytes(t, "S3CODE,20,,,,,\n"))),
	}, nil)

	loader := NewS3LoaderWithClient(client, "promo-bucket", zerolog.Nop())

	set, err := loader.Load(context.Background(), "promo/march.csv.gz")

	require.NoError(t, err)
	_, ok := set.Get("S3CODE")
	assert.True(t, ok)
	client.AssertExpectations(t)
}

func TestS3Loader_GetObjectFails(t *testing.T) {
	client := new(MockObjectGetter)
	client.On("GetObject", mock.Anything, "promo-bucket", "missing.gz").Return(nil, errors.New("NoSuchKey"))

	loader := NewS3LoaderWithClient(client, "promo-bucket", zerolog.Nop())

	set, err := loader.Load(context.Background(), "missing.gz")

	require.Error(t, err)
	assert.Nil(t, set)
	assert.Contains(t, err.Error(), "bucket=promo-bucket")
}

func TestFallbackLoader_S3Success(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (Set, error) {
			assert.Equal(t, "promo/test.gz", path, "S3 key should have prefix")
			return setWith("S3CODE"), nil
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (Set, error) {
			t.Error("file loader should not be called when S3 succeeds")
			return nil, errors.New("should not be called")
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "promo/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "test.gz")
	require.NoError(t, err)
	_, ok := set.Get("S3CODE")
	assert.True(t, ok)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	s3Loader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (Set, error) {
			return nil, errors.New("S3 connection failed")
		},
	}
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (Set, error) {
			assert.Equal(t, "test.gz", path, "local path should not have prefix")
			return setWith("LOCALCODE"), nil
		},
	}

	fallback := NewFallbackLoader(s3Loader, fileLoader, "promo/", zerolog.Nop())

	set, err := fallback.Load(context.Background(), "test.gz")
	require.NoError(t, err)
	_, ok := set.Get("LOCALCODE")
	assert.True(t, ok)
}

func TestFallbackLoader_NoS3(t *testing.T) {
	called := false
	fileLoader := &mockLoader{
		loadFunc: func(ctx context.Context, path string) (Set, error) {
			called = true
			return setWith("LOCALCODE"), nil
		},
	}

	fallback := NewFallbackLoader(nil, fileLoader, "promo/", zerolog.Nop())

	_, err := fallback.Load(context.Background(), "test.gz")
	require.NoError(t, err)
	assert.True(t, called)
}
