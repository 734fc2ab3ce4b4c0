package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dp-manager/internal/audit"
	"dp-manager/internal/observability/metrics"
)

func (h *Handler) routeDevice(w http.ResponseWriter, r *http.Request, headerID int64, rawID string) {
	deviceID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || deviceID <= 0 {
		http.Error(w, "invalid device id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateDevice(w, r, headerID, deviceID)
	case http.MethodDelete:
		h.handleDeleteDevice(w, r, headerID, deviceID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request, headerID int64) {
	devices, err := h.service.ListDevices(r.Context(), headerID)
	if err != nil {
		respondError(w, err)
		return
	}
	resp := deviceListResponse{Devices: make([]deviceDTO, 0, len(devices))}
	for _, device := range devices {
		resp.Devices = append(resp.Devices, toDeviceDTO(device))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateDevice(w http.ResponseWriter, r *http.Request, headerID int64) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	device, err := h.service.CreateDevice(r.Context(), headerID, req.Name, req.Protocol)
	if err != nil {
		metrics.IncItemMutation("device_create", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("device_create", metrics.ResultSuccess)
	respondJSON(w, http.StatusCreated, toDeviceDTO(device))
	h.logAudit(r, audit.ActionDeviceCreate, headerID, map[string]any{"device_id": device.ID, "name": device.Name})
}

func (h *Handler) handleUpdateDevice(w http.ResponseWriter, r *http.Request, headerID, deviceID int64) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	device, err := h.service.UpdateDevice(r.Context(), headerID, deviceID, req.Name, req.Protocol)
	if err != nil {
		metrics.IncItemMutation("device_update", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("device_update", metrics.ResultSuccess)
	respondJSON(w, http.StatusOK, toDeviceDTO(device))
	h.logAudit(r, audit.ActionDeviceUpdate, headerID, map[string]any{"device_id": deviceID})
}

func (h *Handler) handleDeleteDevice(w http.ResponseWriter, r *http.Request, headerID, deviceID int64) {
	if err := h.service.DeleteDevice(r.Context(), headerID, deviceID); err != nil {
		metrics.IncItemMutation("device_delete", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("device_delete", metrics.ResultSuccess)
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, audit.ActionDeviceDelete, headerID, map[string]any{"device_id": deviceID})
}
