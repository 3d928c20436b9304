package ingest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockGetter struct {
	mock.Mock
}

func (m *mockGetter) Get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	args := m.Called(ctx, url, timeout)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, data []byte) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	args := m.Called(ctx, path, contentType, r)
	return args.String(0), args.Error(1)
}

// recordingBlobStore keeps uploaded bodies.
type recordingBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
	onPut   func(path string)
}

func (s *recordingBlobStore) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	if s.onPut != nil {
		s.onPut(path)
	}
	if s.err != nil {
		return "", s.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[path] = data
	return "mem://" + path, nil
}

// noWait retries up to max attempts without sleeping.
type noWait struct {
	max int
}

func (p noWait) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < p.max
}

func (noWait) Backoff(int) time.Duration { return 0 }

type fixedIDs struct{}

func (fixedIDs) NewID() (string, error) { return "run-1", nil }
