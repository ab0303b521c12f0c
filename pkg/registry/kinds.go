package registry

import (
	"github.com/pipecraft/campd/pkg/machines/collect"
	"github.com/pipecraft/campd/pkg/machines/end"
	"github.com/pipecraft/campd/pkg/machines/generic"
	"github.com/pipecraft/campd/pkg/machines/group"
	"github.com/pipecraft/campd/pkg/machines/start"
)

// RegisterDefaultKinds registers all built-in node kind factories.
func (r *Registry) RegisterDefaultKinds() {
	r.Register(start.NewFactory())
	r.Register(end.NewFactory())
	r.Register(group.NewFactory())
	r.Register(collect.NewFactory())
	r.Register(generic.NewFactory())
}
