package models

import "time"

// ManifestKind tags a configuration document with the concern it configures.
type ManifestKind string

const (
	ManifestKindLaunch  ManifestKind = "launch"
	ManifestKindPayload ManifestKind = "payload"
	ManifestKindSite    ManifestKind = "site"
	ManifestKindCollect ManifestKind = "collect"
)

// ManifestKinds lists every kind the configuration chain resolver recognizes.
var ManifestKinds = []ManifestKind{
	ManifestKindLaunch,
	ManifestKindPayload,
	ManifestKindSite,
	ManifestKindCollect,
}

// LibraryNamespace scopes global default manifests shared by all campaigns.
// Library manifests always carry version 0.
const LibraryNamespace = "library"

// Manifest is a versioned, kind-tagged configuration document, scoped either
// to a campaign namespace or to the global library. Immutable once created;
// new configuration means a new version.
type Manifest struct {
	ID        string         `json:"id"`
	Namespace string         `json:"namespace" validate:"required"`
	Kind      ManifestKind   `json:"kind"      validate:"required"`
	Version   int            `json:"version"   validate:"gte=0"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewManifest builds a manifest with a deterministic id.
func NewManifest(namespace string, kind ManifestKind, version int, data map[string]any) *Manifest {
	if data == nil {
		data = map[string]any{}
	}

	return &Manifest{
		ID:        NewManifestID(namespace, kind, version),
		Namespace: namespace,
		Kind:      kind,
		Version:   version,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}
