// Package run wires the daemon together: assistant pipeline, control
// socket, metrics endpoint, pid file, and signal handling.
package run

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crux/internal/assistant"
	"crux/internal/audit"
	"crux/internal/command"
	"crux/internal/config"
	"crux/internal/control"
	"crux/internal/event"
	"crux/internal/llm"
	"crux/internal/stt"
	"crux/internal/tts"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"
)

// Server manages the assistant pipeline plus the daemon's control and
// observability endpoints.
type Server struct {
	cfg       *config.Config
	logger    *logrus.Logger
	startedAt time.Time

	assistant *assistant.Assistant
	backend   *stt.Backend

	transcriptsMu sync.Mutex
	transcripts   []control.Transcript

	metrics metrics
}

// Serve runs the daemon until interrupted.
func Serve(cfg *config.Config, logger *logrus.Logger) error {
	if err := config.MustStatePaths(cfg); err != nil {
		return err
	}
	if err := os.WriteFile(cfg.Paths.PidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0o644); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(cfg.Paths.PidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("remove pid file: %v", err)
		}
	}()
	if err := os.Remove(cfg.Paths.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debugf("remove stale socket: %v", err)
	}

	srv := &Server{
		cfg:         cfg,
		logger:      logger,
		startedAt:   time.Now(),
		transcripts: make([]control.Transcript, 0, cfg.UI.StatusTail),
	}
	srv.metrics.reset()

	var client openai.Client
	if key := llm.ResolveAPIKey(cfg); key != "" {
		client = openai.NewClient(option.WithAPIKey(key))
	}

	srv.backend = stt.NewBackend(cfg, client, logger)
	defer srv.backend.Close()

	registry := command.NewRegistry(cfg, command.NewOSActions(logger), logger)
	speaker := tts.New(cfg, client, logger)
	auditLog := audit.New(cfg.Paths.AuditPath)
	sink := event.Sink(srv.observe)

	srv.assistant = assistant.New(cfg, logger, sink, auditLog, registry,
		llm.New(cfg, logger), speaker, nil, assistant.WithObserver(&srv.metrics))
	listener := stt.NewListener(cfg, srv.backend, logger, srv.assistant.SubmitSpoken)
	srv.assistant.SetEars(listener)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.assistant.Run(ctx)
	go srv.controlLoop(ctx)
	if cfg.Metrics.Enabled {
		go srv.metricsServe(ctx.Done(), cfg.Metrics.Addr)
	}

	if err := srv.assistant.StartListening(); err != nil {
		logger.Warnf("microphone unavailable: %v (text input via control socket still works)", err)
	}

	logger.Infof("crux daemon ready (engine %s, socket %s)", srv.backend.EngineName(), cfg.Paths.SocketPath)

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-sigCh:
		logger.Infof("received signal %s, shutting down", s)
		cancel()
	case <-ctx.Done():
	}
	srv.assistant.StopListening()
	return nil
}

// observe receives assistant events: transcripts feed the status tail,
// status and log events go to the daemon log.
func (s *Server) observe(e event.Event) {
	switch e.Type {
	case event.TypeTranscript:
		s.logger.Infof("%s: %s", e.Role, e.Text)
		s.recordTranscript(string(e.Role), e.Text)
	case event.TypeStatus:
		s.logger.Info(e.Message)
	case event.TypeLog:
		s.logger.Debug(e.Message)
	}
}

func (s *Server) recordTranscript(role, text string) {
	entry := control.Transcript{
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
	s.transcriptsMu.Lock()
	defer s.transcriptsMu.Unlock()
	s.transcripts = append(s.transcripts, entry)
	if len(s.transcripts) > s.cfg.UI.StatusTail {
		s.transcripts = s.transcripts[len(s.transcripts)-s.cfg.UI.StatusTail:]
	}
}

func (s *Server) copyTranscripts() []control.Transcript {
	s.transcriptsMu.Lock()
	defer s.transcriptsMu.Unlock()
	out := make([]control.Transcript, len(s.transcripts))
	copy(out, s.transcripts)
	return out
}

func (s *Server) controlLoop(ctx context.Context) {
	ln, err := net.Listen("unix", s.cfg.Paths.SocketPath)
	if err != nil {
		s.logger.Errorf("control listen: %v", err)
		return
	}
	defer func() {
		if err := ln.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control listener close: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Errorf("control accept: %v", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() {
		if err := conn.Close(); err != nil && ctx.Err() == nil {
			s.logger.Warnf("control connection close: %v", err)
		}
	}()
	sc := bufio.NewScanner(conn)
	if !sc.Scan() {
		return
	}
	var req control.Request
	if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
		return
	}
	_ = json.NewEncoder(conn).Encode(s.dispatch(req))
}

// dispatch maps one control request to its response value.
func (s *Server) dispatch(req control.Request) any {
	switch req.Op {
	case "status":
		return control.Status{
			Running:     true,
			UptimeSec:   time.Since(s.startedAt).Seconds(),
			Listening:   s.assistant.Listening(),
			Engine:      s.backend.EngineName(),
			Transcripts: s.copyTranscripts(),
		}
	case "health":
		return control.SimpleResponse{OK: true, Message: "ok"}
	case "text":
		if req.Text == "" {
			return control.SimpleResponse{OK: false, Message: "empty text"}
		}
		s.assistant.SubmitTyped(req.Text)
		return control.SimpleResponse{OK: true, Message: "queued"}
	case "listen":
		if err := s.assistant.StartListening(); err != nil {
			return control.SimpleResponse{OK: false, Message: err.Error()}
		}
		return control.SimpleResponse{OK: true, Message: "listening"}
	case "mute":
		s.assistant.StopListening()
		return control.SimpleResponse{OK: true, Message: "muted"}
	case "transcripts":
		return s.copyTranscripts()
	default:
		return control.SimpleResponse{OK: false, Message: "unknown op " + req.Op}
	}
}
