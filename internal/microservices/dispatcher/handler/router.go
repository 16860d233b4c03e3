package handler

import (
	"github.com/gin-gonic/gin"
)

func Router(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.PrintHandler.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api/v1")
	api.GET("/printers", h.PrintHandler.Printers)
	api.GET("/orders/:order_id/print-status", h.PrintHandler.GetPrintStatus)
	api.POST("/orders/:order_id/reprint", h.PrintHandler.Reprint)
	if h.History != nil {
		api.GET("/orders/:order_id/print-history", h.History)
	}
	if h.Intake != nil {
		api.POST("/orders", h.Intake)
	}
	return r
}
