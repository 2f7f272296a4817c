package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	v1 "lrt-predictor/internal/controller/http/v1"
	"lrt-predictor/internal/domain/entity"
	"lrt-predictor/internal/domain/usecase"
	"lrt-predictor/pkg/middleware"
	"lrt-predictor/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

const indexTemplate = "index.html"

func Templates() *template.Template {
	return template.Must(template.New("").
		Funcs(template.FuncMap{"fmtFloat": utils.FormatFloat}).
		ParseFS(templateFS, "templates/*.html"))
}

type field struct {
	Key   string
	Label string
	Value string
	Error string
}

type page struct {
	Fields  []field
	Header  []string
	Entries []entity.HistoryEntry
	Error   string
}

// FormHandler serves the single-page form. Field values are echoed back
// from the request; only the history lives on the server.
type FormHandler struct {
	UseCase v1.PredictionUseCase
}

func NewFormHandler(u v1.PredictionUseCase) *FormHandler {
	return &FormHandler{UseCase: u}
}

// Register installs the routes. The engine must have Templates() set.
func (h *FormHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Index)
	r.POST("/submit", h.Submit)
	r.POST("/reset", h.Reset)
	r.POST("/clear", h.Clear)
	r.GET("/download", h.Download)
}

// Index echoes field values from the query string, which is how Submit hands
// them back after its redirect.
func (h *FormHandler) Index(c *gin.Context) {
	var raw entity.RawReading
	_ = c.ShouldBindQuery(&raw)
	h.render(c, http.StatusOK, raw, nil, "")
}

func (h *FormHandler) Reset(c *gin.Context) {
	h.render(c, http.StatusOK, entity.RawReading{}, nil, "")
}

func (h *FormHandler) Submit(c *gin.Context) {
	var raw entity.RawReading
	if err := c.ShouldBind(&raw); err != nil {
		h.render(c, http.StatusBadRequest, raw, nil, "Could not read the form.")
		return
	}

	_, err := h.UseCase.Submit(c.Request.Context(), middleware.SessionID(c), raw)
	if err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			h.render(c, http.StatusUnprocessableEntity, raw, verr.ByField(), "Please enter valid numeric values in all fields.")
			return
		}
		_ = c.Error(err)
		h.render(c, http.StatusInternalServerError, raw, nil, "Prediction failed, please try again.")
		return
	}

	c.Redirect(http.StatusSeeOther, "/?"+echoQuery(raw))
}

func echoQuery(raw entity.RawReading) string {
	values := raw.Values()
	q := make(url.Values, entity.NumFeatures)
	for i, f := range entity.Features {
		q.Set(f.Key, values[i])
	}
	return q.Encode()
}

func (h *FormHandler) Clear(c *gin.Context) {
	if err := h.UseCase.Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		_ = c.Error(err)
		h.render(c, http.StatusInternalServerError, entity.RawReading{}, nil, "Could not clear history.")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *FormHandler) Download(c *gin.Context) {
	data, err := h.UseCase.Export(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "export failed")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+v1.ExportFileName+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func (h *FormHandler) render(c *gin.Context, status int, raw entity.RawReading, fieldErrs map[string]string, msg string) {
	entries, err := h.UseCase.History(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		_ = c.Error(err)
		status = http.StatusInternalServerError
		msg = "Could not load prediction history."
	}

	values := raw.Values()
	fields := make([]field, entity.NumFeatures)
	for i, f := range entity.Features {
		fields[i] = field{Key: f.Key, Label: f.Label, Value: values[i], Error: fieldErrs[f.Key]}
	}

	c.HTML(status, indexTemplate, page{
		Fields:  fields,
		Header:  utils.HistoryCSVHeader(),
		Entries: entries,
		Error:   msg,
	})
}
