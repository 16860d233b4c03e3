package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"print-dispatcher/internal/microservices/dispatcher/repository"
	"print-dispatcher/internal/microservices/dispatcher/service"
)

type Handler struct {
	PrintHandler *PrintHandler
	Metrics      http.Handler

	// Intake accepts new orders when set.
	Intake gin.HandlerFunc
	// History serves the print attempt log when set.
	History gin.HandlerFunc
}

func New(repo repository.OrderRepositoryInterface, svc service.ReconcilerInterface, printers PrinterDirectory, metrics http.Handler) *Handler {
	return &Handler{
		PrintHandler: NewPrintHandler(repo, svc, printers),
		Metrics:      metrics,
	}
}
