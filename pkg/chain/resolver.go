package chain

import (
	"context"
	"fmt"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/pipecraft/campd/pkg/persistence"
)

// Resolver builds, for every recognized manifest kind, the layered lookup a
// node's actions resolve parameters through. Precedence, highest first:
//
//  1. the node's own inline configuration for that kind
//  2. the most recent campaign-scoped manifest of that kind
//  3. the caller-supplied extra override
//  4. the global library manifest of that kind at version 0
//
// Nodes pick up updated campaign/library defaults without being rewritten,
// while a specific node can still pin an override.
type Resolver struct {
	manifests persistence.ManifestRepository
}

// NewResolver returns a resolver backed by the given manifest repository.
func NewResolver(manifests persistence.ManifestRepository) *Resolver {
	return &Resolver{manifests: manifests}
}

// Assemble produces one chain per manifest kind. Missing manifests yield
// empty layers; only real storage failures propagate.
func (r *Resolver) Assemble(ctx context.Context, node *models.Node, extra map[string]any) (map[models.ManifestKind]*Chain, error) {
	chains := make(map[models.ManifestKind]*Chain, len(models.ManifestKinds))

	for _, kind := range models.ManifestKinds {
		campaignLayer, err := r.manifestLayer(ctx, node.Namespace, kind, -1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve campaign manifest for kind %s: %w", kind, err)
		}

		libraryLayer, err := r.manifestLayer(ctx, models.LibraryNamespace, kind, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve library manifest for kind %s: %w", kind, err)
		}

		chains[kind] = New(
			inlineLayer(node, kind),
			campaignLayer,
			Layer(extra),
			libraryLayer,
		)
	}

	return chains, nil
}

// manifestLayer loads a manifest's data as a layer. version -1 means latest.
func (r *Resolver) manifestLayer(ctx context.Context, namespace string, kind models.ManifestKind, version int) (Layer, error) {
	var (
		manifest *models.Manifest
		err      error
	)

	if version < 0 {
		manifest, err = r.manifests.Latest(ctx, namespace, kind)
	} else {
		manifest, err = r.manifests.Get(ctx, namespace, kind, version)
	}

	if err != nil {
		if persistence.IsManifestNotFound(err) {
			return Layer{}, nil
		}

		return nil, err
	}

	return Layer(manifest.Data), nil
}

// inlineLayer extracts the node's inline configuration for one kind.
func inlineLayer(node *models.Node, kind models.ManifestKind) Layer {
	if node.Config == nil {
		return Layer{}
	}

	section, ok := node.Config[string(kind)].(map[string]any)
	if !ok {
		return Layer{}
	}

	return Layer(section)
}
