package customers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"scalpcare-backend/internal/shared/server/middleware"
	"scalpcare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the customers service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches customer routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/customers/:phone", h.getCustomer)
	rg.PUT("/customers/:phone", h.putCustomer)
}

func (h *Handler) getCustomer(c *gin.Context) {
	phone := c.Param("phone")
	c.Set(middleware.CustomerPhoneKey, phone)

	customer, err := h.Svc.Get(c.Request.Context(), phone)
	if err != nil {
		writeError(c, err, "failed to load customer")
		return
	}
	respond.OK(c, customer)
}

func (h *Handler) putCustomer(c *gin.Context) {
	phone := c.Param("phone")
	c.Set(middleware.CustomerPhoneKey, phone)

	var profile Profile
	if err := c.ShouldBindJSON(&profile); err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}
	customer, err := h.Svc.Upsert(c.Request.Context(), phone, profile)
	if err != nil {
		writeError(c, err, "failed to save customer")
		return
	}
	respond.OK(c, customer)
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}
