package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/kanisahq/kanisa/internal/config"
	"github.com/kanisahq/kanisa/internal/contribution"
	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
	"github.com/kanisahq/kanisa/internal/member"
	memberdomain "github.com/kanisahq/kanisa/internal/member/domain"
	"github.com/kanisahq/kanisa/internal/mpesa"
	mpesadomain "github.com/kanisahq/kanisa/internal/mpesa/domain"
	"github.com/kanisahq/kanisa/internal/notifier"
	"github.com/kanisahq/kanisa/internal/observability"
	obsmiddleware "github.com/kanisahq/kanisa/internal/observability/logger"
	obsmetrics "github.com/kanisahq/kanisa/internal/observability/metrics"
	obstracing "github.com/kanisahq/kanisa/internal/observability/tracing"
	"github.com/kanisahq/kanisa/internal/pledge"
	pledgedomain "github.com/kanisahq/kanisa/internal/pledge/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	member.Module,
	pledge.Module,
	contribution.Module,
	notifier.Module,
	mpesa.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	memberSvc       memberdomain.Service
	pledgeSvc       pledgedomain.Service
	contributionSvc contributiondomain.Service
	mpesaSvc        mpesadomain.Service
	notifierSvc     notifier.Provider
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	MemberSvc       memberdomain.Service
	PledgeSvc       pledgedomain.Service
	ContributionSvc contributiondomain.Service
	MpesaSvc        mpesadomain.Service
	NotifierSvc     notifier.Provider
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		genID:           p.GenID,
		memberSvc:       p.MemberSvc,
		pledgeSvc:       p.PledgeSvc,
		contributionSvc: p.ContributionSvc,
		mpesaSvc:        p.MpesaSvc,
		notifierSvc:     p.NotifierSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/mpesa/stkpush", s.HandleSTKPush)
	api.POST("/mpesa/callback", s.HandleMpesaCallback)
	api.GET("/mpesa/status", s.HandleMpesaStatus)

	api.POST("/members", s.HandleCreateMember)
	api.GET("/members", s.HandleListMembers)
	api.GET("/members/:id", s.HandleGetMember)

	api.POST("/pledges", s.HandleCreatePledge)
	api.GET("/pledges", s.HandleListPledges)
	api.POST("/pledges/:id/cancel", s.HandleCancelPledge)

	api.GET("/contributions", s.HandleListContributions)
	api.GET("/contributions/summary", s.HandleContributionSummary)
}
