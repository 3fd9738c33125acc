package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/handler/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/handler/stream"
	middlewarePkg "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/middleware"
	chatService "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/pkg/utils"
)

// NewRouter wires HTTP routes to core services. aiSvc may be nil when no
// model credentials are configured; cal may be nil when the calendar
// integration is disabled.
func NewRouter(engine *chatService.Engine, aiSvc stream.Generator, cal chatHandler.CalendarAPI) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatH := chatHandler.New(engine, cal)

	var streamHandler *stream.Handler
	if aiSvc != nil {
		streamHandler = stream.New(aiSvc, engine)
	}

	r.Route("/api", func(api chi.Router) {
		chatH.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}
