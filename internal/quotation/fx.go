package quotation

import (
	"github.com/craftbom/quotora/internal/quotation/repository"
	"github.com/craftbom/quotora/internal/quotation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("quotation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
