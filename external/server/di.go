package server

import (
	"github.com/foxseedlab/kikitorin/internal/config"
	"github.com/foxseedlab/kikitorin/internal/pipeline"
	"github.com/foxseedlab/kikitorin/internal/registry"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		p := do.MustInvoke[*pipeline.Pipeline](i)
		reg := do.MustInvoke[*registry.Registry](i)
		return NewServer(cfg, p, reg), nil
	})
}
