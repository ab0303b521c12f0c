// Package patch applies RFC6902 patch documents to nodes, producing new node
// versions rather than mutating rows in place.
package patch

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/pipecraft/campd/pkg/models"
)

// Apply runs an ordered sequence of RFC6902 operations (add, remove,
// replace, move, copy, test) against the node's patchable document and
// materializes the result as the successor version: version incremented, id
// freshly derived. The input node is never modified.
func Apply(node *models.Node, operations []byte) (*models.Node, error) {
	p, err := jsonpatch.DecodePatch(operations)
	if err != nil {
		return nil, fmt.Errorf("failed to decode patch: %w", err)
	}

	doc, err := node.Document()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal node document: %w", err)
	}

	patched, err := p.Apply(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to apply patch: %w", err)
	}

	var next map[string]any

	err = json.Unmarshal(patched, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal patched document: %w", err)
	}

	return node.NextVersion(next)
}
