package handler

import (
	"encoding/csv"
	"net/http"

	"stemportal/internal/authz"
	"stemportal/internal/middleware"
	"stemportal/internal/service"
	"stemportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/summary", middleware.RequireCapability(authz.CapViewInventorySummary), h.InventorySummary)
	router.GET("/api/inventory/export", middleware.RequireCapability(authz.CapViewInventorySummary), h.ExportInventory)
	router.GET("/api/requests/export", middleware.RequireCapability(authz.CapViewRequests), h.ExportRequests)
}

// InventorySummary returns the per-rack grouping plus request counters
// @Summary      Inventory summary
// @Description  Groups the ledger by canonical rack (empty racks included, unknown locations bucketed) and counts requests per status
// @Tags         reports
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.SummaryResponse}
// @Failure      403  {object}  response.Response
// @Router       /api/summary [get]
func (h *ReportHandler) InventorySummary(c *gin.Context) {
	summary, err := h.reportService.InventorySummary(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ExportInventory streams the ledger as CSV
// @Summary      Export inventory CSV
// @Tags         reports
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200
// @Router       /api/inventory/export [get]
func (h *ReportHandler) ExportInventory(c *gin.Context) {
	rows, err := h.reportService.InventoryExportRows(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeCSV(c, "inventory_summary.csv", rows)
}

// ExportRequests streams decided requests as CSV
// @Summary      Export fulfilled requests CSV
// @Tags         reports
// @Security     BearerAuth
// @Produce      text/csv
// @Success      200
// @Router       /api/requests/export [get]
func (h *ReportHandler) ExportRequests(c *gin.Context) {
	rows, err := h.reportService.RequestExportRows(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeCSV(c, "fulfilled_requests.csv", rows)
}

func (h *ReportHandler) writeCSV(c *gin.Context, filename string, rows [][]string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	_ = writer.WriteAll(rows)
	writer.Flush()
}
