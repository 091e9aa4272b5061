package assembly

import (
	"github.com/craftbom/quotora/internal/assembly/repository"
	"github.com/craftbom/quotora/internal/assembly/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assembly.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
