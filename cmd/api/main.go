package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/config"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/handler"
	chatHandler "github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/handler/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/handler/stream"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/ai"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/calendar"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/chat"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/service/docs"
	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/transcript"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Knowledge base
	processor, err := docs.NewProcessor(cfg.Docs.Dir)
	if err != nil {
		log.Fatalf("failed to initialize document processor: %v", err)
	}
	if err := processor.LoadAll(); err != nil {
		log.Printf("warning: failed to load documents: %v", err)
	}
	if cfg.Docs.Watch {
		watcher, err := docs.NewWatcher(processor)
		if err != nil {
			log.Printf("warning: failed to start document watcher: %v", err)
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			log.Println("Document watcher started")
		}
	}

	// AI service
	var aiService *ai.Service
	if cfg.AI.Enabled() {
		aiService, err = ai.NewService(ctx, cfg.AI)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
			log.Println("continuing without AI functionality, check the Ark environment variables")
		} else {
			log.Println("AI service initialized successfully")
		}
	} else {
		log.Println("Ark credentials not configured, skipping AI initialization")
	}

	// Calendar service
	var calendarService *calendar.Service
	if cfg.Calendar.Enabled() {
		calendarService, err = calendar.NewService(ctx, calendar.Config{
			CredentialsFile: cfg.Calendar.CredentialsFile,
			TokenFile:       cfg.Calendar.TokenFile,
			CalendarID:      cfg.Calendar.CalendarID,
			AttendeeEmail:   cfg.Calendar.AttendeeEmail,
			Timezone:        cfg.Calendar.Timezone,
		})
		if err != nil {
			log.Printf("warning: failed to initialize calendar service: %v", err)
		} else {
			log.Println("Calendar service initialized successfully")
		}
	} else {
		log.Println("Calendar credentials not configured, skipping scheduling integration")
	}

	// Transcript store. Persistence is best-effort: a store that cannot be
	// opened disables transcripts instead of blocking the chat service.
	store, err := newTranscriptStore(cfg.Transcript)
	if err != nil {
		log.Printf("warning: transcript persistence disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
		log.Printf("Transcript store ready, backend=%s path=%s", cfg.Transcript.Backend, cfg.Transcript.Path)
	}

	// Conversation engine
	var generator chat.Generator
	if aiService != nil {
		generator = aiService
	}
	var scheduler chat.Scheduler
	if calendarService != nil {
		scheduler = schedulerAdapter{svc: calendarService}
	}
	engine := chat.NewEngine(store, generator, processor, scheduler, chat.Config{
		RatingThreshold:     cfg.Engine.RatingThreshold,
		CallSuggestionTurn:  cfg.Engine.CallSuggestionTurn,
		HistoryLimit:        cfg.Engine.HistoryLimit,
		CollaboratorTimeout: cfg.Engine.CollaboratorTimeout,
		StrictPersistence:   cfg.Transcript.Strict,
	})

	var streamGen stream.Generator
	if aiService != nil {
		streamGen = aiService
	}
	var calendarAPI chatHandler.CalendarAPI
	if calendarService != nil {
		calendarAPI = calendarService
	}

	router := handler.NewRouter(engine, streamGen, calendarAPI)

	startServer(ctx, cfg.Server, router)
}

func newTranscriptStore(cfg config.TranscriptConfig) (transcript.Store, error) {
	if cfg.Backend == "sqlite" {
		return transcript.NewSQLiteStore(cfg.Path)
	}
	return transcript.NewCSVStore(cfg.Path)
}

// schedulerAdapter narrows the calendar service to the engine's free-text
// scheduling port.
type schedulerAdapter struct {
	svc *calendar.Service
}

func (a schedulerAdapter) ScheduleCall(ctx context.Context, freeText string) chat.ScheduleOutcome {
	result := a.svc.ScheduleCall(ctx, freeText)
	outcome := chat.ScheduleOutcome{
		Success:   result.Success,
		EventTime: result.EventTime,
	}
	if result.Err != nil {
		outcome.Err = result.Err.Error()
	}
	return outcome
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("NFL Insight Assistant backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
