package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockWorkspace is a mock implementation of protocol.Workspace.
type MockWorkspace struct {
	mock.Mock
}

func (m *MockWorkspace) EnsureDir(path string) error {
	args := m.Called(path)

	return args.Error(0)
}

func (m *MockWorkspace) RemoveDir(path string) error {
	args := m.Called(path)

	return args.Error(0)
}

func (m *MockWorkspace) Exists(path string) bool {
	args := m.Called(path)

	return args.Bool(0)
}

func (m *MockWorkspace) RenderFile(path, source string, data map[string]any) error {
	args := m.Called(path, source, data)

	return args.Error(0)
}
