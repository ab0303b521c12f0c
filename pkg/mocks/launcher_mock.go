// Package mocks provides testify mock implementations of the engine's
// external collaborator interfaces.
package mocks

import (
	"context"

	"github.com/pipecraft/campd/pkg/protocol"
	"github.com/stretchr/testify/mock"
)

// MockLauncher is a mock implementation of protocol.Launcher.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context, config map[string]any) (string, error) {
	args := m.Called(ctx, config)

	return args.String(0), args.Error(1)
}

func (m *MockLauncher) Check(ctx context.Context, handle string) (*protocol.CheckResult, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.CheckResult), args.Error(1)
}
