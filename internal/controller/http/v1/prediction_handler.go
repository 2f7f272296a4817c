package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/internal/domain/usecase"
	"lrt-predictor/pkg/middleware"
)

const ExportFileName = "lrt_predictions.csv"

type PredictionUseCase interface {
	Submit(ctx context.Context, sessionID string, raw entity.RawReading) (*entity.HistoryEntry, error)
	History(ctx context.Context, sessionID string) ([]entity.HistoryEntry, error)
	Clear(ctx context.Context, sessionID string) error
	Export(ctx context.Context, sessionID string) ([]byte, error)
	ExportURL(ctx context.Context, sessionID string) (string, error)
}

type PredictionHandler struct {
	UseCase PredictionUseCase
}

func NewPredictionHandler(u PredictionUseCase) *PredictionHandler {
	return &PredictionHandler{UseCase: u}
}

func (h *PredictionHandler) Register(g *gin.RouterGroup) {
	g.POST("/predictions", h.Create)
	g.GET("/predictions", h.List)
	g.DELETE("/predictions", h.Clear)
	g.GET("/predictions/export", h.Export)
	g.POST("/predictions/export", h.ExportURL)
}

func (h *PredictionHandler) Create(c *gin.Context) {
	var raw entity.RawReading
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	entry, err := h.UseCase.Submit(c.Request.Context(), middleware.SessionID(c), raw)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": verr.ByField()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "prediction failed"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *PredictionHandler) List(c *gin.Context) {
	entries, err := h.UseCase.History(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *PredictionHandler) Clear(c *gin.Context) {
	if err := h.UseCase.Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PredictionHandler) Export(c *gin.Context) {
	data, err := h.UseCase.Export(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *PredictionHandler) ExportURL(c *gin.Context) {
	url, err := h.UseCase.ExportURL(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		if errors.Is(err, usecase.ErrExportDisabled) {
			c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
