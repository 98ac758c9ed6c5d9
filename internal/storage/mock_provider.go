package storage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockWriter is a testify mock of seo.Writer and seo.Cleaner.
type MockWriter struct {
	mock.Mock
}

// Write is the mock implementation of the Write method.
func (m *MockWriter) Write(ctx context.Context, path string, content []byte) error {
	args := m.Called(ctx, path, content)
	return args.Error(0) //nolint:wrapcheck
}

// Exists is the mock implementation of the Exists method.
func (m *MockWriter) Exists(ctx context.Context, path string) (bool, error) {
	args := m.Called(ctx, path)
	return args.Bool(0), args.Error(1) //nolint:wrapcheck
}

// Cleanup is the mock implementation of the Cleanup method.
func (m *MockWriter) Cleanup(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1) //nolint:wrapcheck
}
