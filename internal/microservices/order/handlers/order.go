package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	dto "print-dispatcher/internal/microservices/order/domain/dto"
	"print-dispatcher/internal/microservices/order/service"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

func (oh *OrderHandler) AddOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"type": "invalid_json", "status": http.StatusBadRequest, "detail": err.Error()})
		return
	}

	resp, err := oh.service.AddOrder(c.Request.Context(), req)
	if errors.Is(err, service.ErrNotPublished) {
		// Stored: a retry would create a second order.
		c.JSON(http.StatusAccepted, resp)
		return
	}
	if errors.Is(err, service.ErrInvalidOrder) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"type": "invalid_order", "status": http.StatusBadRequest, "detail": err.Error()})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"type": "db_error", "status": http.StatusInternalServerError, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, resp)
}
