package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
	chatservice "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/pkg/utils"
)

// Generator is the slice of the AI service the stream handler needs.
type Generator interface {
	StreamingEnabled() bool
	GenerateAnswer(ctx context.Context, query string, history []chat.Turn, docContext string) (string, error)
	StreamAnswer(ctx context.Context, query string, history []chat.Turn, docContext string) (*schema.StreamReader[*schema.Message], error)
}

// Handler answers chat turns over Server-Sent Events. Only plain scouting
// questions stream token by token; state-machine turns are answered whole so
// their semantics match the REST endpoint exactly.
type Handler struct {
	ai     Generator
	engine *chatservice.Engine
}

// New creates a stream handler.
func New(ai Generator, engine *chatservice.Engine) *Handler {
	return &Handler{ai: ai, engine: engine}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event           string `json:"event"`
	Content         string `json:"content,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Finished        bool   `json:"finished,omitempty"`
	ShowCallButtons bool   `json:"show_call_buttons,omitempty"`
	Error           string `json:"error,omitempty"`
}

// HandleStreamRequest processes one chat turn as an SSE stream.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	prep, err := h.engine.BeginStream(ctx, sessionID, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, err.Error())
		return err
	}

	if !prep.Streamable {
		// The engine already ran the full state machine for this turn.
		h.sendSSE(w, flusher, StreamResponse{
			Event:           "message",
			SessionID:       prep.SessionID,
			Content:         prep.Reply.Text,
			ShowCallButtons: prep.Reply.OfferSchedulingHint,
		})
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "end",
			SessionID: prep.SessionID,
			Finished:  true,
		})
		return nil
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: prep.SessionID})

	docContext := h.engine.DocumentContext(userMessage)
	answer, err := h.dispatchAnswer(ctx, w, flusher, prep, userMessage, docContext)
	if err != nil {
		log.Printf("[stream] generation failed for session=%s: %v", prep.SessionID, err)
		answer = chatservice.GenerationFailedReply
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: prep.SessionID,
			Content:   answer,
		})
	}

	reply, err := h.engine.CompleteStream(ctx, prep.SessionID, userMessage, answer)
	if err != nil {
		h.sendSSEError(w, flusher, "failed to record exchange")
		return err
	}
	if reply.Text != "" {
		// Usually the rating prompt appended by the turn-count gate.
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: prep.SessionID,
			Content:   reply.Text,
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:           "end",
		SessionID:       prep.SessionID,
		Finished:        true,
		ShowCallButtons: reply.OfferSchedulingHint,
	})

	log.Printf("[stream] completed response for session=%s", prep.SessionID)
	return nil
}

// dispatchAnswer streams the model output when streaming is enabled and
// falls back to a single-shot generation otherwise.
func (h *Handler) dispatchAnswer(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, prep chatservice.StreamPrep, userMessage, docContext string) (string, error) {
	if !h.ai.StreamingEnabled() {
		answer, err := h.ai.GenerateAnswer(ctx, userMessage, prep.History, docContext)
		if err != nil {
			return "", err
		}

		h.sendSSE(w, flusher, StreamResponse{
			Event:     "message",
			SessionID: prep.SessionID,
			Content:   answer,
		})
		return answer, nil
	}

	stream, err := h.ai.StreamAnswer(ctx, userMessage, prep.History, docContext)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: prep.SessionID,
				Content:   chunk.Content,
			})
		}
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: prep.SessionID,
		Content:   response.Content,
	})
	return response.Content, nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: errorMsg})
}
