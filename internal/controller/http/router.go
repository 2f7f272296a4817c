package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "lrt-predictor/internal/controller/http/v1"
	"lrt-predictor/internal/controller/http/web"
	"lrt-predictor/pkg/middleware"
)

type RouterConfig struct {
	UseCase       v1.PredictionUseCase
	Logger        *zap.Logger
	RateLimiter   gin.HandlerFunc
	SessionMaxAge int
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter)
	}
	r.Use(middleware.Session(cfg.SessionMaxAge))

	r.SetHTMLTemplate(web.Templates())
	web.NewFormHandler(cfg.UseCase).Register(r)

	v1Group := r.Group("/api/v1")
	{
		v1.NewPredictionHandler(cfg.UseCase).Register(v1Group)
	}

	return r
}
