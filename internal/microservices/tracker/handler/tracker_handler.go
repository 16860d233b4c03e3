package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"print-dispatcher/internal/microservices/tracker/service"
)

type TrackerHandler struct {
	service service.TrackerServiceInterface
}

func NewTrackerHandler(s service.TrackerServiceInterface) *TrackerHandler {
	return &TrackerHandler{service: s}
}

// GetHistory serves GET /orders/:order_id/print-history?limit=&offset=.
func (h *TrackerHandler) GetHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"type": "invalid_order_id", "status": http.StatusBadRequest, "detail": "order id must be a positive integer"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	v, err := h.service.GetHistory(c.Request.Context(), id, limit, offset)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"type": "db_error", "status": http.StatusInternalServerError, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, v)
}
