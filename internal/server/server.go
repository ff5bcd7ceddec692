// Package server exposes the lifecycle engine over HTTP. It owns parameter
// extraction, actor resolution, and the mapping from result values to wire
// status codes; all business rules stay in the services.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/indielance/cra/internal/audit/domain"
	companydomain "github.com/indielance/cra/internal/company/domain"
	"github.com/indielance/cra/internal/config"
	cradomain "github.com/indielance/cra/internal/cra/domain"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
	"github.com/indielance/cra/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.AppVersion})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger, metrics *HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, log, metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	crasvc     cradomain.Service
	companySvc companydomain.Service
	missionSvc missiondomain.Service
	auditSvc   auditdomain.Service
	limiter    *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	CraSvc     cradomain.Service
	CompanySvc companydomain.Service
	MissionSvc missiondomain.Service
	AuditSvc   auditdomain.Service
	Limiter    *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		db:         p.DB,
		crasvc:     p.CraSvc,
		companySvc: p.CompanySvc,
		missionSvc: p.MissionSvc,
		auditSvc:   p.AuditSvc,
		limiter:    p.Limiter,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired(), s.WriteRateLimit())

	// -------- Reports --------
	api.POST("/cras", s.CreateReport)
	api.GET("/cras", s.ListReports)
	api.GET("/cras/:id", s.GetReport)
	api.DELETE("/cras/:id", s.DestroyReport)
	api.POST("/cras/:id/submit", s.SubmitReport)
	api.POST("/cras/:id/lock", s.LockReport)
	api.POST("/cras/:id/missions", s.AttachMission)

	// -------- Entries --------
	api.GET("/cras/:id/entries", s.ListEntries)
	api.POST("/cras/:id/entries", s.CreateEntry)
	api.GET("/cras/:id/entries/:entryId", s.GetEntry)
	api.PATCH("/cras/:id/entries/:entryId", s.UpdateEntry)
	api.DELETE("/cras/:id/entries/:entryId", s.DeleteEntry)

	// -------- Companies & Missions --------
	api.POST("/companies", s.CreateCompany)
	api.POST("/companies/:id/members", s.AddCompanyMember)
	api.GET("/companies/:id/members", s.ListCompanyMembers)
	api.POST("/companies/:id/missions", s.CreateMission)
	api.GET("/companies/:id/missions", s.ListCompanyMissions)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}
