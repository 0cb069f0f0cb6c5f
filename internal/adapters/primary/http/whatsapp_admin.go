package http

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/vibin/jx3-item-bot/config"
)

// setupWhatsAppAdminRoutes sets up routes for WhatsApp admin functionality
func (h *Handler) setupWhatsAppAdminRoutes(r chi.Router) {
	h.logger.Info("Setting up WhatsApp admin routes")

	r.Route("/whatsapp", func(r chi.Router) {
		r.Get("/groups", h.handleGetGroups)
		r.Post("/groups", h.handleUpdateGroups)
		r.Get("/status", h.handleWhatsAppStatus)
		r.Post("/send", h.handleSendGroupMessage)
	})
}

// handleGetGroups returns a list of WhatsApp groups
func (h *Handler) handleGetGroups(w http.ResponseWriter, r *http.Request) {
	if !h.whatsappAdapter.IsConnected() {
		h.respondWithError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}

	groups, err := h.whatsappAdapter.GetGroups(r.Context())
	if err != nil {
		h.logger.Error("Failed to get WhatsApp groups", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get WhatsApp groups")
		return
	}

	h.respondWithJSON(w, http.StatusOK, groups)
}

// handleUpdateGroups updates the list of groups the bot answers in
func (h *Handler) handleUpdateGroups(w http.ResponseWriter, r *http.Request) {
	var requestData struct {
		AllowedGroups []string `json:"allowed_groups"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	groups := requestData.AllowedGroups
	if groups == nil {
		groups = []string{}
	}

	h.configMu.Lock()
	defer h.configMu.Unlock()

	if err := h.whatsappAdapter.UpdateAllowedGroups(slices.Clone(groups)); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update allowed groups")
		return
	}

	h.config.WhatsApp.AllowedGroups = groups

	if err := config.SaveConfig(h.config, config.GetConfigPath()); err != nil {
		h.logger.Error("Failed to save config", "error", err)
		h.respondWithError(w, http.StatusInternalServerError, "Failed to save configuration")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "WhatsApp groups updated successfully"})
}

// handleWhatsAppStatus returns the status of the WhatsApp connection
func (h *Handler) handleWhatsAppStatus(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"connected": h.whatsappAdapter.IsConnected(),
		"enabled":   h.config.WhatsApp.Enabled,
	})
}

// SendMessageRequest is the body of a manual bot message
type SendMessageRequest struct {
	GroupID string `json:"group_id"`
	Message string `json:"message"`
}

// handleSendGroupMessage sends a message to a group on behalf of the bot
func (h *Handler) handleSendGroupMessage(w http.ResponseWriter, r *http.Request) {
	if !h.whatsappAdapter.IsConnected() {
		h.respondWithError(w, http.StatusServiceUnavailable, "WhatsApp is not connected")
		return
	}

	var request SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if request.GroupID == "" {
		h.respondWithError(w, http.StatusBadRequest, "Group ID is required")
		return
	}
	if request.Message == "" {
		h.respondWithError(w, http.StatusBadRequest, "Message is required")
		return
	}

	if err := h.whatsappAdapter.SendGroupMessage(r.Context(), request.GroupID, request.Message); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, "Failed to send message: "+err.Error())
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Message sent successfully",
	})
}
