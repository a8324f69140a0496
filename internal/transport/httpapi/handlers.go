package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

type handler struct {
	control JobControl
	catalog CatalogQuery
	logger  *log.Entry
}

type toggleRequest struct {
	Name   string `json:"name" binding:"required"`
	Status *bool  `json:"status" binding:"required"`
}

type envelope struct {
	Data       any `json:"data"`
	StatusCode int `json:"statusCode"`
}

type errorEnvelope struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func (h *handler) listJobs(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		writeError(c, http.StatusBadRequest, "page must be an integer")
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		writeError(c, http.StatusBadRequest, "limit must be an integer")
		return
	}

	result, err := h.control.ListJobs(c.Request.Context(), page, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, result)
}

func (h *handler) toggleJob(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "body must contain name (string) and status (boolean)")
		return
	}

	msg, err := h.control.ToggleJob(c.Request.Context(), req.Name, *req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, msg)
}

func (h *handler) triggerJob(c *gin.Context) {
	msg, err := h.control.TriggerJob(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, msg)
}

func (h *handler) syncNextXDays(c *gin.Context) {
	days, err := queryInt(c, "daysToSync", 1)
	if err != nil {
		writeError(c, http.StatusBadRequest, domain.ErrInvalidHorizon.Error())
		return
	}

	msg, err := h.control.SyncNextXDays(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, msg)
}

func (h *handler) productDates(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	dates, err := h.catalog.ProductDates(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, dates)
}

func (h *handler) productSlots(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}
	slots, err := h.catalog.ProductSlots(c.Request.Context(), id, c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeData(c, http.StatusOK, slots)
}

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "productId must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *handler) fail(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrProductNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	default:
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("api request failed")
		writeError(c, http.StatusInternalServerError, "internal server error")
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeData(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data, StatusCode: status})
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Message: message, StatusCode: status})
}
