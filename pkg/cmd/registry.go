package cmd

import (
	"log/slog"

	"github.com/pipecraft/campd/pkg/registry"
)

// NewRegistry builds a registry with every built-in node kind registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultKinds()

	return reg
}
