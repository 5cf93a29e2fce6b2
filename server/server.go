package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	contractx "github.com/tzuchiao/tutorgraph/agent/contract"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":3001"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// ChatService is the orchestrator surface the transport needs.
type ChatService interface {
	SubmitMessage(ctx context.Context, threadID string, text string) (<-chan contractx.Fragment, error)
}

// Server frames turn fragments as server-sent events: one data frame per
// chunk, error frames as data payloads (not protocol aborts), and a [DONE]
// terminator.
type Server struct {
	echo *echo.Echo
	chat ChatService
	cfg  Config
}

func New(chat ChatService, cfg Config) (*Server, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat service is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, chat: chat, cfg: cfg}

	e.GET("/api/chat", s.handleChat)
	e.POST("/api/chat", s.handleChatPost)
	e.GET("/health", s.handleHealth)

	return s, nil
}

func (s *Server) Start() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("chat server listening")
	return s.echo.Start(s.cfg.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	return s.streamChat(c, chatRequest{
		ThreadID: c.QueryParam("thread_id"),
		Message:  c.QueryParam("message"),
	})
}

func (s *Server) handleChatPost(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return s.streamChat(c, req)
}

func (s *Server) streamChat(c echo.Context, req chatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = uuid.NewString()
	}

	fragments, err := s.chat.SubmitMessage(c.Request().Context(), threadID, req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Thread-Id", threadID)
	res.WriteHeader(http.StatusOK)

	for frag := range fragments {
		switch frag.Kind {
		case contractx.FragmentChunk:
			if err := writeEvent(res, map[string]string{"chunk": frag.Text}); err != nil {
				return err
			}
		case contractx.FragmentError:
			if err := writeEvent(res, map[string]string{"error": frag.Text}); err != nil {
				return err
			}
		case contractx.FragmentDone:
			if _, err := fmt.Fprint(res, "data: [DONE]\n\n"); err != nil {
				return err
			}
			res.Flush()
		}
	}

	return nil
}

func writeEvent(res *echo.Response, payload map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
		return err
	}
	res.Flush()
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
