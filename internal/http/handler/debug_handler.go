package handler

import (
	"net/http"

	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/permission"
)

// DebugHandler exposes the in-memory permission denial log. The router
// only mounts it outside production.
type DebugHandler struct {
	debugLog *permission.DebugLog
}

func NewDebugHandler(debugLog *permission.DebugLog) *DebugHandler {
	return &DebugHandler{debugLog: debugLog}
}

func (h *DebugHandler) Denials(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]any{
		"count":   h.debugLog.Len(),
		"denials": h.debugLog.Entries(),
	})
}

func (h *DebugHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="permission-denials.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.debugLog.ExportAsText()))
}

func (h *DebugHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.debugLog.Clear()
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "cleared"})
}
