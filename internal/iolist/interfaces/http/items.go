package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dp-manager/internal/audit"
	"dp-manager/internal/iolist/application"
	"dp-manager/internal/observability/metrics"
)

func (h *Handler) routeItem(w http.ResponseWriter, r *http.Request, headerID int64, rawID string) {
	itemID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || itemID <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateItem(w, r, headerID, itemID)
	case http.MethodDelete:
		h.handleDeleteItem(w, r, headerID, itemID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListItems(w http.ResponseWriter, r *http.Request, headerID int64) {
	query := r.URL.Query()
	filter := application.ItemFilter{
		DuplicatesOnly:      query.Get("duplicates_only") == "true",
		MissingRequiredOnly: query.Get("missing_required_only") == "true",
	}
	items, err := h.service.ListItems(r.Context(), headerID, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	dtos, err := toItemDTOs(items)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, itemListResponse{Items: dtos})
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request, headerID int64) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	raw, err := req.rowData()
	if err != nil {
		http.Error(w, "raw_data must be an object of string values", http.StatusBadRequest)
		return
	}
	item, err := h.service.CreateItem(r.Context(), headerID, raw)
	if err != nil {
		metrics.IncItemMutation("item_create", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("item_create", metrics.ResultSuccess)
	dto, err := toItemDTO(item)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, dto)
	h.logAudit(r, audit.ActionItemCreate, headerID, map[string]any{"item_id": item.ID})
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request, headerID, itemID int64) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	raw, err := req.rowData()
	if err != nil {
		http.Error(w, "raw_data must be an object of string values", http.StatusBadRequest)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), headerID, itemID, raw)
	if err != nil {
		metrics.IncItemMutation("item_update", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("item_update", metrics.ResultSuccess)
	dto, err := toItemDTO(item)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto)
	h.logAudit(r, audit.ActionItemUpdate, headerID, map[string]any{"item_id": itemID})
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request, headerID, itemID int64) {
	if err := h.service.DeleteItem(r.Context(), headerID, itemID); err != nil {
		metrics.IncItemMutation("item_delete", metrics.ResultError)
		respondError(w, err)
		return
	}
	metrics.IncItemMutation("item_delete", metrics.ResultSuccess)
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, audit.ActionItemDelete, headerID, map[string]any{"item_id": itemID})
}

func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request, headerID int64) {
	summary, err := h.service.Validate(r.Context(), headerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
