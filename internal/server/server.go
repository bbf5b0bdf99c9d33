package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stableview/stableview/internal/clock"
	"github.com/stableview/stableview/internal/config"
	obsmetrics "github.com/stableview/stableview/internal/observability/metrics"
	"github.com/stableview/stableview/internal/providers/price"
	"github.com/stableview/stableview/internal/refresh"
	stablecoindomain "github.com/stableview/stableview/internal/stablecoin/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	stablecoinSvc stablecoindomain.Service
	refresher     *refresh.Refresher
	refreshCfg    refresh.Config
	priceClient   *price.Client
}

type Params struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	StablecoinSvc stablecoindomain.Service
	Refresher     *refresh.Refresher
	RefreshCfg    refresh.Config
	PriceClient   *price.Client
}

func NewServer(p Params) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		clock:         p.Clock,
		stablecoinSvc: p.StablecoinSvc,
		refresher:     p.Refresher,
		refreshCfg:    p.RefreshCfg,
		priceClient:   p.PriceClient,
	}
}

func (s *Server) now() time.Time {
	return s.clock.Now()
}

func RegisterRoutes(s *Server) {
	v1 := s.engine.Group("/v1")

	v1.GET("/stablecoins", s.ListStablecoins)
	v1.POST("/stablecoins", s.CreateStablecoin)
	v1.GET("/stablecoins/:id", s.GetStablecoin)
	v1.GET("/stablecoins/:id/peg-price", s.GetStablecoinPegPrice)

	v1.POST("/refresh/metrics", s.TriggerMetricsRefresh)
	v1.POST("/refresh/prices", s.TriggerPriceRefresh)
	v1.POST("/refresh/peg-prices", s.TriggerPegPriceRefresh)
	v1.POST("/refresh/price-cache/clear", s.ClearPriceCache)

	v1.POST("/cron/refresh", s.CronAuth(), s.CronRefresh)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", srv.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
