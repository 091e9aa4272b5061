package export

import (
	"github.com/craftbom/quotora/internal/export/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("export.service",
	fx.Provide(pdf.New),
	fx.Provide(New),
)
