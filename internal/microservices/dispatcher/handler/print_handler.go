package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"print-dispatcher/internal/domain"
	"print-dispatcher/internal/microservices/dispatcher/repository"
	"print-dispatcher/internal/microservices/dispatcher/service"
	"print-dispatcher/internal/printing/resolver"
	"print-dispatcher/internal/printing/sink"
)

// PrinterDirectory exposes the last printer resolution.
type PrinterDirectory interface {
	Snapshot() (domain.Bindings, resolver.Report, []sink.Device)
}

const healthTimeout = 2 * time.Second

type PrintHandler struct {
	repo     repository.OrderRepositoryInterface
	service  service.ReconcilerInterface
	printers PrinterDirectory
}

func NewPrintHandler(repo repository.OrderRepositoryInterface, svc service.ReconcilerInterface, printers PrinterDirectory) *PrintHandler {
	return &PrintHandler{repo: repo, service: svc, printers: printers}
}

func (h *PrintHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := h.repo.Ping(ctx); err != nil {
		writeProblem(c, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type printersView struct {
	Kitchen    string         `json:"kitchen"`
	Cashier    string         `json:"cashier"`
	Sources    map[string]any `json:"sources"`
	Discovered *sink.Device   `json:"discovered,omitempty"`
	Match      resolver.Match `json:"match,omitempty"`
	Devices    []sink.Device  `json:"devices"`
}

func (h *PrintHandler) Printers(c *gin.Context) {
	b, rep, devices := h.printers.Snapshot()
	if devices == nil {
		devices = []sink.Device{}
	}
	c.JSON(http.StatusOK, printersView{
		Kitchen:    b.Kitchen,
		Cashier:    b.Cashier,
		Sources:    map[string]any{"kitchen": rep.Kitchen, "cashier": rep.Cashier},
		Discovered: rep.Discovered,
		Match:      rep.Match,
		Devices:    devices,
	})
}

func (h *PrintHandler) GetPrintStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	v, err := h.repo.GetPrintStatus(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeProblem(c, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		writeProblem(c, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, v)
}

// Reprint sets reprint_kitchen, reprint_cashier or reprint_all on an order.
// role defaults to all.
func (h *PrintHandler) Reprint(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	role := c.DefaultQuery("role", "all")
	if _, valid := domain.ReprintFor(role); !valid {
		writeProblem(c, http.StatusBadRequest, "invalid_role", "role must be kitchen, cashier or all")
		return
	}
	status, err := h.service.RequestReprint(c.Request.Context(), id, role)
	if errors.Is(err, repository.ErrNotFound) {
		writeProblem(c, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		writeProblem(c, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"order_id": id, "print_status": status})
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || id <= 0 {
		writeProblem(c, http.StatusBadRequest, "invalid_order_id", "order id must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeProblem renders a simplified RFC 7807 problem document.
func writeProblem(c *gin.Context, code int, typ, detail string) {
	c.AbortWithStatusJSON(code, gin.H{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
