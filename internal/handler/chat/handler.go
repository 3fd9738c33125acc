package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/calendar"
	chatservice "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/pkg/utils"
)

// CalendarAPI is the slice of the calendar service the handler needs. It is
// nil when the integration is not configured.
type CalendarAPI interface {
	AvailableSlots(ctx context.Context, date string) (calendar.SlotList, error)
	ScheduleConsultation(ctx context.Context, datetimeStr, email, name string) calendar.ScheduleResult
}

// Handler exposes the conversation engine over HTTP.
type Handler struct {
	engine   *chatservice.Engine
	calendar CalendarAPI
}

// New creates the chat handler.
func New(engine *chatservice.Engine, cal CalendarAPI) *Handler {
	return &Handler{engine: engine, calendar: cal}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/clear_history", h.handleClearHistory)
	r.Post("/get_available_slots", h.handleAvailableSlots)
	r.Post("/schedule_call", h.handleScheduleCall)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.engine.HandleMessage(r.Context(), payload.SessionID, payload.Message)
	if err != nil {
		if errors.Is(err, chatservice.ErrEmptyMessage) {
			utils.RespondError(w, http.StatusBadRequest, "No message provided")
			return
		}
		log.Printf("[chat] message handling failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"response":          reply.Text,
		"session_id":        reply.SessionID,
		"show_call_buttons": reply.OfferSchedulingHint,
	})
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.Clear(r.Context(), payload.SessionID); err != nil {
		log.Printf("[chat] clear failed for session=%s: %v", payload.SessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *Handler) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Date string `json:"date"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Date == "" {
		utils.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Date is required",
		})
		return
	}
	if h.calendar == nil {
		utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   "calendar integration is not configured",
		})
		return
	}

	slots, err := h.calendar.AvailableSlots(r.Context(), payload.Date)
	if err != nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"date":            slots.Date,
		"available_slots": slots.Slots,
	})
}

func (h *Handler) handleScheduleCall(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Datetime  string `json:"datetime"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.calendar == nil {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Unable to schedule the consultation. Please try again or contact us directly.",
		})
		return
	}

	result := h.calendar.ScheduleConsultation(r.Context(), payload.Datetime, payload.Email, payload.Name)
	if !result.Success {
		if result.Err != nil {
			log.Printf("[chat] consultation scheduling failed: %v", result.Err)
		}
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"message": "Unable to schedule the consultation. Please try again or contact us directly.",
		})
		return
	}

	if payload.SessionID != "" {
		if err := h.engine.MarkCallScheduled(r.Context(), payload.SessionID); err != nil {
			log.Printf("[chat] failed to flag scheduled call for session=%s: %v", payload.SessionID, err)
		}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Your consultation has been scheduled successfully! You will receive a calendar invite shortly.",
		"event_id": result.EventID,
	})
}
