package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-risk/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-risk/internal/http/middleware"
	"github.com/yungbote/neurobridge-risk/internal/observability"
	"github.com/yungbote/neurobridge-risk/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	RequestTimeout time.Duration

	HealthHandler  *httpH.HealthHandler
	RiskHandler    *httpH.RiskHandler
	CatalogHandler *httpH.CatalogHandler
	AdminHandler   *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(httpMW.Recovery(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Healthz)
		r.GET("/readyz", cfg.HealthHandler.Readyz)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(httpMW.AttachRequestContext(cfg.RequestTimeout))
	{
		// Scoring
		if cfg.RiskHandler != nil {
			api.GET("/students/:id/risk", cfg.RiskHandler.GetRisk)
			api.GET("/students/:id/features", cfg.RiskHandler.GetFeatures)
			api.GET("/students/:id/similar-risks", cfg.RiskHandler.GetSimilarRisks)
			api.GET("/students/:id/forecast", cfg.RiskHandler.GetForecast)
			api.POST("/risk/simulate", cfg.RiskHandler.Simulate)
		}

		// Catalog
		if cfg.CatalogHandler != nil {
			api.GET("/students", cfg.CatalogHandler.ListStudents)
			api.GET("/modules", cfg.CatalogHandler.ListModules)
			api.GET("/modules/:name", cfg.CatalogHandler.GetModule)
			api.GET("/overview", cfg.CatalogHandler.GetOverview)
			api.GET("/snapshot", cfg.CatalogHandler.GetSnapshot)
			api.GET("/profiles/:profile/strategy", cfg.CatalogHandler.GetStrategy)
		}

		// Admin
		if cfg.AdminHandler != nil {
			api.POST("/admin/reload", cfg.AdminHandler.Reload)
		}
	}

	return r
}
