package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockFileStorage implements storage.FileStorage
type MockFileStorage struct {
	mock.Mock
}

// Save stores a file under the given name
func (m *MockFileStorage) Save(filename string, content io.Reader) error {
	args := m.Called(filename, content)
	return args.Error(0)
}

// Get retrieves a stored file
func (m *MockFileStorage) Get(filename string) (io.ReadCloser, error) {
	args := m.Called(filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete removes a stored file
func (m *MockFileStorage) Delete(filename string) error {
	args := m.Called(filename)
	return args.Error(0)
}

// Exists reports whether a stored file is present
func (m *MockFileStorage) Exists(filename string) bool {
	args := m.Called(filename)
	return args.Bool(0)
}

// Path returns the absolute path of a stored file
func (m *MockFileStorage) Path(filename string) (string, error) {
	args := m.Called(filename)
	return args.String(0), args.Error(1)
}
