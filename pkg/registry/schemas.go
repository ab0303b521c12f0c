package registry

import (
	"fmt"
	"strings"

	"github.com/pipecraft/campd/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// ValidateConfig checks a node's configuration against its kind's JSON
// schema before the node is accepted into a campaign graph.
func (r *Registry) ValidateConfig(kind models.NodeKind, config map[string]any) error {
	factory, err := r.Factory(kind)
	if err != nil {
		return err
	}

	// An omitted config means "no configuration", not JSON null; every kind
	// schema expects an object.
	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for kind %s: %w", kind, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("invalid config for kind %s: %s", kind, strings.Join(problems, "; "))
}
