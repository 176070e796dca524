// Package server exposes a turntable session over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rp8000/midi"
	"rp8000/turntable"
)

// Display is the part of turntable.Session the API drives.
type Display interface {
	Model() turntable.Model
	Tempo() (bpm float64, channel int)
	PortName() (string, error)
	SetTempo(bpm float64, channel int) error
	EnableChannel(channel int) error
	Startup() error
	TempoMode() error
	TimeMode() error
	Shutdown() error
}

// Server serializes requests so every send owns the port exclusively.
type Server struct {
	display        Display
	ports          midi.Ports
	defaultChannel int
	log            *zap.Logger

	mu     sync.Mutex
	engine *gin.Engine
}

// New builds the router. ports is used by GET /api/ports.
func New(display Display, ports midi.Ports, defaultChannel int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		display:        display,
		ports:          ports,
		defaultChannel: defaultChannel,
		log:            log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.accessLog)

	// Allow browser-based controllers
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := r.Group("/api")
	api.GET("/status", s.getStatus)
	api.GET("/ports", s.getPorts)
	api.POST("/tempo", s.setTempo)
	api.POST("/startup", s.command(Display.Startup, "startup"))
	api.POST("/mode/tempo", s.command(Display.TempoMode, "tempo mode"))
	api.POST("/mode/time", s.command(Display.TimeMode, "time mode"))
	api.POST("/shutdown", s.command(Display.Shutdown, "shutdown"))
	api.POST("/channels/:channel", s.enableChannel)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("http api listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)),
	)
}

type statusResponse struct {
	Model   string  `json:"model"`
	Port    string  `json:"port"`
	BPM     float64 `json:"bpm"`
	Channel int     `json:"channel"`
}

func (s *Server) getStatus(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := statusResponse{Model: s.display.Model().String()}
	resp.BPM, resp.Channel = s.display.Tempo()

	port, err := s.display.PortName()
	if err != nil {
		s.fail(c, err)
		return
	}
	resp.Port = port
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getPorts(c *gin.Context) {
	outs, err := s.ports.Outs()
	if err != nil {
		s.fail(c, err)
		return
	}
	names := midi.Names(outs)
	match, err := midi.FindOut(names, s.display.Model().String())
	if err != nil {
		match = -1
	}
	c.JSON(http.StatusOK, gin.H{
		"ports": names,
		"match": match,
	})
}

type tempoRequest struct {
	BPM     *float64 `json:"bpm" binding:"required"`
	Channel int      `json:"channel"`
}

func (s *Server) setTempo(c *gin.Context) {
	var req tempoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"bpm\": number, \"channel\": int}"})
		return
	}
	if req.Channel == 0 {
		req.Channel = s.defaultChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.display.SetTempo(*req.BPM, req.Channel); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bpm": *req.BPM, "channel": req.Channel})
}

func (s *Server) enableChannel(c *gin.Context) {
	ch, err := strconv.Atoi(c.Param("channel"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be a number"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.display.EnableChannel(ch); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel": ch})
}

func (s *Server) command(fn func(Display) error, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := fn(s.display); err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"sent": name})
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, turntable.ErrTempoOutOfRange), errors.Is(err, turntable.ErrInvalidChannel):
		return http.StatusBadRequest
	case errors.Is(err, midi.ErrPortNotFound), errors.Is(err, midi.ErrEnumerationTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
