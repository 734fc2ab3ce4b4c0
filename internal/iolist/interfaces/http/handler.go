package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dp-manager/internal/audit"
	"dp-manager/internal/auth"
	"dp-manager/internal/iolist/application"
	iolist "dp-manager/internal/iolist/domain"
	"dp-manager/internal/iolist/interfaces/dpexport"
	"dp-manager/internal/iolist/interfaces/excel"
	"dp-manager/internal/observability/metrics"
)

const (
	basePath    = "/api/v1/iolist/"
	headersPath = basePath + "headers"

	defaultMaxUploadBytes = 32 << 20
)

// Handler serves the IO List API.
type Handler struct {
	service        *application.Service
	exporter       *dpexport.Exporter
	auditLogger    audit.Logger
	maxUploadBytes int64
}

// HandlerOption customizes the handler.
type HandlerOption func(*Handler)

// WithMaxUploadBytes caps the accepted upload size.
func WithMaxUploadBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxUploadBytes = limit
		}
	}
}

// WithAuditLogger assigns an audit logger.
func WithAuditLogger(logger audit.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.auditLogger = logger
		}
	}
}

// NewHandler constructs a Handler.
func NewHandler(service *application.Service, exporter *dpexport.Exporter, opts ...HandlerOption) (*Handler, error) {
	if service == nil {
		return nil, errors.New("iolist handler: nil service")
	}
	if exporter == nil {
		return nil, errors.New("iolist handler: nil exporter")
	}
	h := &Handler{
		service:        service,
		exporter:       exporter,
		auditLogger:    audit.Nop{},
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP routes IO List requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, basePath) {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, basePath), "/")
	switch {
	case path == "upload" && r.Method == http.MethodPost:
		h.handleUpload(w, r)
		return
	case path == "filters" && r.Method == http.MethodGet:
		h.handleFilterValues(w, r)
		return
	case path == "headers" && r.Method == http.MethodGet:
		h.handleListHeaders(w, r)
		return
	}

	if !strings.HasPrefix(path, "headers/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.TrimPrefix(path, "headers/"), "/")
	headerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || headerID <= 0 {
		http.Error(w, "invalid header id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handleGetHeader(w, r, headerID)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		h.handleDeleteHeader(w, r, headerID)
	case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodGet:
		h.handleListItems(w, r, headerID)
	case len(parts) == 2 && parts[1] == "items" && r.Method == http.MethodPost:
		h.handleCreateItem(w, r, headerID)
	case len(parts) == 3 && parts[1] == "items":
		h.routeItem(w, r, headerID, parts[2])
	case len(parts) == 2 && parts[1] == "devices" && r.Method == http.MethodGet:
		h.handleListDevices(w, r, headerID)
	case len(parts) == 2 && parts[1] == "devices" && r.Method == http.MethodPost:
		h.handleCreateDevice(w, r, headerID)
	case len(parts) == 3 && parts[1] == "devices":
		h.routeDevice(w, r, headerID, parts[2])
	case len(parts) == 2 && parts[1] == "validation" && r.Method == http.MethodGet:
		h.handleValidation(w, r, headerID)
	case len(parts) == 3 && parts[1] == "export":
		h.routeExport(w, r, headerID, parts[2])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleUpload ingests a multipart workbook upload (field "file").
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		metrics.IncUploadError("multipart")
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		metrics.IncUploadError("missing_file")
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sheet, err := excel.ReadSheet(file)
	if err != nil {
		metrics.IncUploadError("parse")
		metrics.ObserveUpload(metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}

	result, err := h.service.Upload(r.Context(), fileHeader.Filename, sheet)
	if err != nil {
		metrics.IncUploadError("ingest")
		metrics.ObserveUpload(metrics.ResultError, time.Since(start))
		respondError(w, err)
		return
	}
	metrics.ObserveUpload(metrics.ResultSuccess, time.Since(start))

	respondJSON(w, http.StatusCreated, uploadResponse{
		Header:      toHeaderDTO(result.Header),
		DeviceCount: result.DeviceCount,
	})
	h.logAudit(r, audit.ActionUpload, result.Header.ID, map[string]any{
		"file_name":  result.Header.FileName,
		"item_count": result.Header.ItemCount,
	})
}

func (h *Handler) handleListHeaders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := application.HeaderFilter{
		HullNo:  query.Get("hull_no"),
		IMO:     query.Get("imo"),
		DateKey: query.Get("date_key"),
	}
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))

	headers, err := h.service.ListHeaders(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := headerListResponse{Headers: make([]headerDTO, 0, len(headers))}
	for _, header := range headers {
		resp.Headers = append(resp.Headers, toHeaderDTO(header))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetHeader(w http.ResponseWriter, r *http.Request, headerID int64) {
	header, err := h.service.GetHeader(r.Context(), headerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toHeaderDTO(header))
}

func (h *Handler) handleDeleteHeader(w http.ResponseWriter, r *http.Request, headerID int64) {
	if err := h.service.DeleteHeader(r.Context(), headerID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, audit.ActionHeaderDelete, headerID, nil)
}

func (h *Handler) handleFilterValues(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.FilterValues(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, values)
}

func (h *Handler) logAudit(r *http.Request, action string, headerID int64, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var payload json.RawMessage
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:    auth.SubjectFromContext(r.Context()),
		Role:     string(auth.RoleFromContext(r.Context())),
		Action:   action,
		Resource: "header/" + strconv.FormatInt(headerID, 10),
		Detail:   payload,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps domain errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	var schemaErr *iolist.SchemaError
	var requiredErr *iolist.RequiredValueError
	var filenameErr *iolist.FilenameParseError

	switch {
	case errors.Is(err, iolist.ErrHeaderNotFound),
		errors.Is(err, iolist.ErrItemNotFound),
		errors.Is(err, iolist.ErrDeviceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, iolist.ErrDeviceExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &schemaErr),
		errors.As(err, &requiredErr),
		errors.As(err, &filenameErr),
		errors.Is(err, iolist.ErrEmptyDocument),
		errors.Is(err, iolist.ErrInvalidProtocol):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
