package http

import (
	"fmt"
	"net/http"
	"time"

	"dp-manager/internal/audit"
	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
	"dp-manager/internal/iolist/interfaces/dpexport"
	"dp-manager/internal/iolist/interfaces/excel"
	"dp-manager/internal/iolist/interfaces/report"
	"dp-manager/internal/observability/metrics"
)

func (h *Handler) routeExport(w http.ResponseWriter, r *http.Request, headerID int64, format string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch format {
	case "dp":
		h.handleExportDP(w, r, headerID)
	case "xlsx":
		h.handleExportXLSX(w, r, headerID)
	case "report":
		h.handleExportReport(w, r, headerID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// loadExportSet fetches everything an export needs from one header.
func (h *Handler) loadExportSet(r *http.Request, headerID int64) (*iolist.Header, []*iolist.Item, []*iolist.Device, error) {
	header, err := h.service.GetHeader(r.Context(), headerID)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := h.service.ListItems(r.Context(), headerID, application.ItemFilter{})
	if err != nil {
		return nil, nil, nil, err
	}
	devices, err := h.service.ListDevices(r.Context(), headerID)
	if err != nil {
		return nil, nil, nil, err
	}
	return header, items, devices, nil
}

func (h *Handler) handleExportDP(w http.ResponseWriter, r *http.Request, headerID int64) {
	start := time.Now()
	header, items, devices, err := h.loadExportSet(r, headerID)
	if err != nil {
		metrics.ObserveExport("dp", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	now := time.Now().UTC()
	payload, err := h.exporter.Build(header, items, devices, now)
	if err != nil {
		metrics.ObserveExport("dp", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.ObserveExport("dp", metrics.ResultSuccess, time.Since(start))
	serveAttachment(w, dpexport.FileName(header, now), "application/xml", payload)
	h.logAudit(r, audit.ActionDPExport, headerID, map[string]any{"items": len(items)})
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request, headerID int64) {
	start := time.Now()
	header, items, devices, err := h.loadExportSet(r, headerID)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	payload, err := excel.BuildWorkbook(header, items, devices)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(start))
	serveAttachment(w, excel.WorkbookFileName(header),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}

func (h *Handler) handleExportReport(w http.ResponseWriter, r *http.Request, headerID int64) {
	start := time.Now()
	header, items, _, err := h.loadExportSet(r, headerID)
	if err != nil {
		metrics.ObserveExport("report", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	payload, err := report.BuildQualityPDF(header, items)
	if err != nil {
		metrics.ObserveExport("report", metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.ObserveExport("report", metrics.ResultSuccess, time.Since(start))
	serveAttachment(w, report.ReportFileName(header), "application/pdf", payload)
}

func serveAttachment(w http.ResponseWriter, fileName, contentType string, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
