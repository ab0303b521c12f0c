// Package web provides HTTP request and response types for the campaign API.
package web

import "github.com/pipecraft/campd/pkg/models"

// CreateCampaignRequest represents the request body for creating a campaign.
type CreateCampaignRequest struct {
	Name      string         `json:"name"      validate:"required,min=1"`
	Namespace string         `json:"namespace" validate:"required,min=1"`
	Owner     string         `json:"owner"     validate:"required,min=1"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// CreateNodeRequest represents the request body for creating a node inside a
// campaign namespace.
type CreateNodeRequest struct {
	Name     string         `json:"name"     validate:"required,min=1"`
	Kind     string         `json:"kind"     validate:"required"`
	Config   map[string]any `json:"config,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CreateEdgeRequest represents the request body for authoring a dependency.
type CreateEdgeRequest struct {
	SourceID string         `json:"source_id" validate:"required"`
	TargetID string         `json:"target_id" validate:"required"`
	Name     string         `json:"name"`
	Config   map[string]any `json:"config,omitempty"`
}

// CreateManifestRequest represents the request body for publishing a new
// manifest version.
type CreateManifestRequest struct {
	Kind    string         `json:"kind"    validate:"required"`
	Version int            `json:"version" validate:"gte=0"`
	Data    map[string]any `json:"data"`
}

// TriggerRequest represents the request body for the operator trigger
// endpoint: retry, force, pause and the other recovery triggers.
type TriggerRequest struct {
	Trigger   string `json:"trigger"    validate:"required"`
	Operator  string `json:"operator"   validate:"required,min=1"`
	RequestID string `json:"request_id,omitempty"`
}

// ProcessRequest represents the body of the single-step process RPC.
type ProcessRequest struct {
	ID        string `json:"id"         validate:"required"`
	RequestID string `json:"request_id,omitempty"`
}

// KindDescription documents one registered node kind and its configuration
// schema.
type KindDescription struct {
	Kind        models.NodeKind `json:"kind"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      map[string]any  `json:"schema"`
}
