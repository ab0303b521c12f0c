// Package generic provides the pass-through action set for plain nodes.
package generic

import (
	"github.com/pipecraft/campd/pkg/machines/base"
	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/protocol"
)

// Actions is the default node behavior: no side effects, guards always pass.
// Useful for structural nodes whose progress is driven purely by operators
// or by the daemon's normal path.
type Actions struct {
	base.Actions
}

// NewActions builds a generic action set.
func NewActions(deps protocol.Dependencies) *Actions {
	return &Actions{Actions: base.NewActions(deps)}
}

// Kind returns the node kind.
func (a *Actions) Kind() models.NodeKind {
	return models.NodeKindGeneric
}
