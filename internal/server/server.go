package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/craftbom/quotora/internal/assembly"
	assemblydomain "github.com/craftbom/quotora/internal/assembly/domain"
	"github.com/craftbom/quotora/internal/component"
	componentdomain "github.com/craftbom/quotora/internal/component/domain"
	"github.com/craftbom/quotora/internal/config"
	"github.com/craftbom/quotora/internal/export"
	"github.com/craftbom/quotora/internal/observability"
	obsmiddleware "github.com/craftbom/quotora/internal/observability/logger"
	"github.com/craftbom/quotora/internal/quotation"
	quotationdomain "github.com/craftbom/quotora/internal/quotation/domain"
	"github.com/craftbom/quotora/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	component.Module,
	assembly.Module,
	quotation.Module,
	export.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	componentSvc  componentdomain.Service
	assemblySvc   assemblydomain.Service
	quotationSvc  quotationdomain.Service
	exportSvc     export.Service
	recalcLimiter *ratelimit.RecalculateLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	ComponentSvc  componentdomain.Service
	AssemblySvc   assemblydomain.Service
	QuotationSvc  quotationdomain.Service
	ExportSvc     export.Service
	RecalcLimiter *ratelimit.RecalculateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		componentSvc:  p.ComponentSvc,
		assemblySvc:   p.AssemblySvc,
		quotationSvc:  p.QuotationSvc,
		exportSvc:     p.ExportSvc,
		recalcLimiter: p.RecalcLimiter,
	}
	svc.registerRoutes()
	return svc
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/v1", OrgContext())

	components := api.Group("/components")
	components.POST("", s.CreateComponent)
	components.GET("", s.ListComponents)
	components.GET("/:id", s.GetComponent)
	components.PATCH("/:id", s.UpdateComponent)
	components.PUT("/:id/price", s.SetComponentPrice)
	components.GET("/:id/price-history", s.ComponentPriceHistory)

	assemblies := api.Group("/assemblies")
	assemblies.POST("", s.CreateAssembly)
	assemblies.GET("", s.ListAssemblies)
	assemblies.GET("/:id", s.GetAssembly)
	assemblies.PATCH("/:id", s.UpdateAssembly)
	assemblies.PUT("/:id/members", s.SetAssemblyMembers)
	assemblies.GET("/:id/cost", s.AssemblyCost)

	quotations := api.Group("/quotations")
	quotations.POST("", s.CreateQuotation)
	quotations.GET("", s.ListQuotations)
	quotations.GET("/:id", s.GetQuotation)
	quotations.PATCH("/:id", s.UpdateQuotation)
	quotations.POST("/:id/systems", s.AddQuotationSystem)
	quotations.PATCH("/:id/systems/:system_id", s.UpdateQuotationSystem)
	quotations.DELETE("/:id/systems/:system_id", s.DeleteQuotationSystem)
	quotations.POST("/:id/items", s.AddQuotationItem)
	quotations.PATCH("/:id/items/:item_id", s.UpdateQuotationItem)
	quotations.DELETE("/:id/items/:item_id", s.DeleteQuotationItem)
	quotations.PUT("/:id/parameters", s.UpdateQuotationParameters)
	quotations.POST("/:id/recalculate", s.RecalculateQuotation)
	quotations.GET("/:id/calculations", s.QuotationCalculations)
	quotations.GET("/:id/pdf", s.QuotationPDF)
}
