// Package gateway serves the Slack HTTP Events API. It verifies request
// signatures, answers the URL verification handshake and hands app mentions
// and slash commands to the dispatcher. It is used when Socket Mode is off.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	channelslack "slackadder/pkg/channels/slack"
	"slackadder/pkg/config"
	"slackadder/pkg/logger"
	"slackadder/pkg/version"
)

const (
	maxBodyBytes  = 1 << 20
	retryHeader   = "X-Slack-Retry-Num"
	reasonHeader  = "X-Slack-Retry-Reason"
	readTimeout   = 10 * time.Second
	headerTimeout = 5 * time.Second
)

var errBodyTooLarge = errors.New("request body too large")

// Server is the HTTP Events API transport.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	identifier channelslack.Identifier
	dispatcher *channelslack.Dispatcher
	echo       *echo.Echo
	startedAt  time.Time

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewServer creates the gateway server.
func NewServer(cfg *config.Config, identifier channelslack.Identifier, dispatcher *channelslack.Dispatcher, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		config:     cfg,
		logger:     log,
		identifier: identifier,
		dispatcher: dispatcher,
		startedAt:  time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	e := echo.New()
	e.Use(middleware.Recover())

	e.POST(s.config.Server.EventsPath, s.handleEvents)
	e.POST(s.config.Server.CommandsPath, s.handleCommand)
	e.GET("/healthz", s.handleHealth)

	s.echo = e
}

// ID returns the channel identifier.
func (s *Server) ID() string {
	return "http"
}

// Name returns the channel name.
func (s *Server) Name() string {
	return "Slack (HTTP Events API)"
}

// Addr returns the bound listen address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start verifies the bot credentials and starts listening.
func (s *Server) Start(ctx context.Context) error {
	if _, err := channelslack.Bootstrap(ctx, s.identifier, s.dispatcher, s.config.Slack.AllowFrom, s.logger); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.Server.Host, strconv.Itoa(s.config.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	// http.Server directly so shutdown stays under the fx lifecycle.
	srv := &http.Server{
		Handler:           s.echo,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: headerTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Gateway server starting",
		zap.String("addr", ln.Addr().String()),
		zap.String("events_path", s.config.Server.EventsPath),
		zap.String("commands_path", s.config.Server.CommandsPath))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Gateway server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops accepting requests, then waits for running commands.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Gateway server stopping")

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	return errors.Join(err, s.dispatcher.Shutdown(ctx))
}

// handleEvents serves the Events API endpoint.
func (s *Server) handleEvents(c *echo.Context) error {
	req := c.Request()
	body, err := s.readVerified(req)
	if err != nil {
		return s.rejected(c, err)
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.logger.Warn("Malformed Events API payload", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		return c.String(http.StatusOK, challenge.Challenge)

	case slackevents.CallbackEvent:
		// The first delivery was already accepted; a retry would run it twice.
		if retry := req.Header.Get(retryHeader); retry != "" {
			s.logger.Debug("Ignoring Slack retry",
				zap.String("retry_num", retry),
				zap.String("reason", req.Header.Get(reasonHeader)))
			return c.NoContent(http.StatusOK)
		}

		if ev, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent); ok {
			s.dispatcher.HandleMention(ev)
		}
	}

	return c.NoContent(http.StatusOK)
}

// handleCommand serves the slash command endpoint.
func (s *Server) handleCommand(c *echo.Context) error {
	req := c.Request()
	body, err := s.readVerified(req)
	if err != nil {
		return s.rejected(c, err)
	}

	req.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(req)
	if err != nil {
		s.logger.Warn("Malformed slash command", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}

	s.dispatcher.HandleSlashCommand(cmd)
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        version.GetVersion(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}

// readVerified reads the body and checks the Slack request signature.
func (s *Server) readVerified(req *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}

	verifier, err := slack.NewSecretsVerifier(req.Header, s.config.Slack.SigningSecret)
	if err != nil {
		return nil, err
	}
	if _, err := verifier.Write(body); err != nil {
		return nil, err
	}
	if err := verifier.Ensure(); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) rejected(c *echo.Context, err error) error {
	s.logger.Warn("Rejected Slack request",
		zap.String("path", c.Request().URL.Path),
		zap.Error(err))
	if errors.Is(err, errBodyTooLarge) {
		return c.NoContent(http.StatusRequestEntityTooLarge)
	}
	return c.NoContent(http.StatusUnauthorized)
}
