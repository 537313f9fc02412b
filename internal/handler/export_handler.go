package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"habittracker/internal/report"
	"habittracker/internal/service"
	"habittracker/pkg/logger"
	"habittracker/pkg/metrics"
)

type ExportHandler struct {
	reportService *service.ReportService
	logger        *zap.Logger
}

func NewExportHandler(reportService *service.ReportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// CSV handles GET /api/export/csv?habit_id=
func (h *ExportHandler) CSV(c *gin.Context) {
	h.export(c, report.FormatCSV, report.WriteCSV)
}

// PDF handles GET /api/export/pdf?habit_id=
func (h *ExportHandler) PDF(c *gin.Context) {
	h.export(c, report.FormatPDF, report.WritePDF)
}

func (h *ExportHandler) export(c *gin.Context, format string, render func(io.Writer, *report.Report) error) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var habitID *int
	if raw := c.Query("habit_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			badRequest(c, "invalid habit_id")
			return
		}
		habitID = &id
	}

	rep, err := h.reportService.Build(c.Request.Context(), userID, habitID)
	if err != nil {
		metrics.IncrementReportExport(format, "error")
		respondError(c, h.logger, err)
		return
	}

	// 先完整渲染到内存，失败时还能返回 JSON 错误
	var buf bytes.Buffer
	if err := render(&buf, rep); err != nil {
		metrics.IncrementReportExport(format, "error")
		respondError(c, h.logger, err)
		return
	}

	metrics.IncrementReportExport(format, "success")
	logger.WithTrace(c.Request.Context(), h.logger).Info("Report exported",
		zap.Int("user_id", userID),
		zap.String("format", format),
		zap.Int("habits", len(rep.Sections)),
		zap.Int("bytes", buf.Len()),
	)

	filename := report.Filename(format, rep.GeneratedAt)
	c.DataFromReader(http.StatusOK, int64(buf.Len()), report.ContentType(format), &buf, map[string]string{
		"Content-Disposition": `attachment; filename="` + filename + `"`,
	})
}
