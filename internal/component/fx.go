package component

import (
	"github.com/craftbom/quotora/internal/component/repository"
	"github.com/craftbom/quotora/internal/component/service"
	"go.uber.org/fx"
)

var Module = fx.Module("component.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
