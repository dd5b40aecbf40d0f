package router

import (
	"log/slog"
	"time"

	"saasan/internal/handlers"
	"saasan/internal/middleware"
	"saasan/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const maxRateLimitVisitors = 10000

// Deps is everything the HTTP surface needs.
type Deps struct {
	DB        *gorm.DB
	Services  *services.Services
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	JWTSecret []byte

	CORSOrigins       []string
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxUploadBytes    int64
	MaxFilesPerUpload int
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// New builds the gin engine with every route registered.
func New(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))
	r.Use(middleware.Authenticate(d.JWTSecret))
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	reportHandler := handlers.NewReportHandler(d.Services.Reports)
	statusHandler := handlers.NewStatusHandler(d.Services.Reports)
	voteHandler := handlers.NewVoteHandler(d.Services.Votes)
	evidenceHandler := handlers.NewEvidenceHandler(d.Services.Evidence, d.MaxUploadBytes, d.MaxFilesPerUpload)
	statsHandler := handlers.NewStatsHandler(d.Services.Stats)
	politicianHandler := handlers.NewPoliticianHandler(d.Services.Politicians)
	majorCaseHandler := handlers.NewMajorCaseHandler(d.Services.MajorCases)
	healthHandler := handlers.NewHealthHandler(d.DB)

	// 写操作按 IP 限流
	limited := middleware.RateLimit(middleware.NewIPRateLimiter(d.RateLimitRPS, d.RateLimitBurst, maxRateLimitVisitors))

	r.GET("/healthz", healthHandler.Healthz)
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// 举报 (Reports)
	reports := r.Group("/reports")
	{
		reports.GET("", reportHandler.List)
		reports.POST("", limited, reportHandler.Create)
		reports.GET("/:id", reportHandler.Get)
		reports.PATCH("/:id", middleware.AuthRequired(), reportHandler.Update)
		reports.GET("/:id/verification", reportHandler.Verification)
		reports.POST("/:id/share", limited, reportHandler.Share)

		reports.GET("/:id/vote", voteHandler.Current)
		reports.POST("/:id/vote", middleware.AuthRequired(), limited, voteHandler.Vote)

		reports.POST("/:id/evidence", middleware.AuthRequired(), evidenceHandler.Upload)
		reports.DELETE("/:id/evidence/:evidenceId", middleware.AuthRequired(), evidenceHandler.Delete)

		reports.POST("/:id/status",
			middleware.RequireRole(services.RoleInvestigator, services.RoleModerator, services.RoleAdmin),
			statusHandler.AddStatusUpdate)
	}

	// 统计 (Statistics)
	stats := r.Group("/stats")
	{
		stats.GET("/overview", statsHandler.Overview)
		stats.GET("/categories", statsHandler.Categories)
		stats.GET("/major-cases", statsHandler.MajorCases)
	}

	r.GET("/politicians", politicianHandler.List)
	r.POST("/politicians", middleware.RequireRole(services.RoleAdmin), politicianHandler.Create)

	curate := middleware.RequireRole(services.RoleModerator, services.RoleAdmin)
	cases := r.Group("/major-cases")
	{
		cases.GET("", majorCaseHandler.List)
		cases.GET("/:id", majorCaseHandler.Get)
		cases.POST("", curate, majorCaseHandler.Create)
		cases.PATCH("/:id", curate, majorCaseHandler.UpdateStatus)
	}
}
