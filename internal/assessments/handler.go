package assessments

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"scalpcare-backend/internal/kb"
	"scalpcare-backend/internal/shared/server/middleware"
	"scalpcare-backend/internal/shared/server/respond"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Handler wires HTTP handlers to the assessments service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches assessment routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/customers/:phone/assessments", h.create)
	rg.GET("/customers/:phone/assessments", h.list)
	rg.GET("/customers/:phone/assessments/compare", h.compare)
	rg.GET("/assessments/:id", h.get)
	rg.POST("/assessments/preview", h.preview)
	rg.GET("/catalogs", h.catalogs)
}

func (h *Handler) create(c *gin.Context) {
	phone := c.Param("phone")
	c.Set(middleware.CustomerPhoneKey, phone)

	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), c.GetString(middleware.RequestIDKey))
	a, err := h.Svc.Create(ctx, phone, in)
	if err != nil {
		writeError(c, err, "failed to create assessment")
		return
	}
	c.Set(middleware.AssessmentIDKey, a.ID)
	c.Set(middleware.StatusTransitionKey, "->"+a.Status)

	respond.Accepted(c, gin.H{
		"assessmentId":   a.ID,
		"status":         a.Status,
		"analysisResult": a.Analysis,
		"promptBlock":    a.PromptBlock,
		"images":         a.Images,
		"createdAt":      a.CreatedAt,
	})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.AssessmentIDKey, id)

	a, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "failed to fetch assessment")
		return
	}
	if a.Status != StatusCompleted {
		a.Report = nil
	}
	respond.OK(c, a)
}

func (h *Handler) list(c *gin.Context) {
	phone := c.Param("phone")
	c.Set(middleware.CustomerPhoneKey, phone)

	limit := queryInt(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	items, err := h.Svc.ListByCustomer(c.Request.Context(), phone, limit, offset)
	if err != nil {
		writeError(c, err, "failed to list assessments")
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, a := range items {
		ids := make([]kb.DiagnosisID, 0, len(a.Analysis.Diagnoses))
		for _, d := range a.Analysis.Diagnoses {
			ids = append(ids, d.ID)
		}
		item := gin.H{
			"assessmentId": a.ID,
			"status":       a.Status,
			"createdAt":    a.CreatedAt,
			"diagnoses":    ids,
		}
		if a.Status == StatusCompleted && a.Report != nil {
			item["estimatedAge"] = a.Report.Panel.EstimatedAge
		}
		resp = append(resp, item)
	}
	respond.OK(c, gin.H{"items": resp, "limit": limit, "offset": offset})
}

func (h *Handler) compare(c *gin.Context) {
	phone := c.Param("phone")
	c.Set(middleware.CustomerPhoneKey, phone)

	cmp, err := h.Svc.Compare(c.Request.Context(), phone, c.Query("from"), c.Query("to"))
	if err != nil {
		writeError(c, err, "failed to compare assessments")
		return
	}
	respond.OK(c, cmp)
}

func (h *Handler) preview(c *gin.Context) {
	var in kb.AssessmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	analysis, block, err := h.Svc.Preview(in)
	if err != nil {
		writeError(c, err, "failed to run analysis")
		return
	}
	respond.OK(c, gin.H{
		"analysisResult": analysis,
		"promptBlock":    block,
	})
}

func (h *Handler) catalogs(c *gin.Context) {
	respond.OK(c, h.Svc.engine().Catalogs().Data())
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotComparable):
		respond.Error(c, http.StatusUnprocessableEntity, "NOT_COMPARABLE", err.Error(), nil)
	case errors.Is(err, ErrCustomerNotFound):
		respond.Error(c, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "assessment not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
