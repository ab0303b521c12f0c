package models

import "time"

// Campaign is a named root scope owning a graph of nodes. Its status advances
// only through its END node's finish callback; the engine never deletes one.
type Campaign struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"       validate:"required,min=1"`
	Namespace string         `json:"namespace"  validate:"required,min=1"`
	Owner     string         `json:"owner"      validate:"required,min=1"`
	Status    Status         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCampaign builds a campaign with a deterministic id. Campaigns are born
// ready: the scheduler considers them as soon as a valid graph is authored,
// and their status only moves again when the END node finishes.
func NewCampaign(name, namespace, owner string) *Campaign {
	now := time.Now().UTC()

	return &Campaign{
		ID:        NewCampaignID(name, namespace),
		Name:      name,
		Namespace: namespace,
		Owner:     owner,
		Status:    StatusReady,
		Metadata:  map[string]any{},
		Config:    map[string]any{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
