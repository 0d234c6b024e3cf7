// Package server exposes health, status, metrics and presence input over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"PresenceTrader/internal/controller"
	"PresenceTrader/internal/detector"
	"PresenceTrader/internal/metrics"
)

var log = logrus.WithField("component", "server")

// StatusSource reports the controller's display state.
type StatusSource interface {
	Status() controller.Status
}

// Server is the HTTP surface. Push is optional; without it POST /presence is refused.
type Server struct {
	status  StatusSource
	push    *detector.Push
	metrics *metrics.Registry
}

func New(status StatusSource, push *detector.Push, reg *metrics.Registry) *Server {
	return &Server{status: status, push: push, metrics: reg}
}

type presenceRequest struct {
	Present *bool `json:"present" binding:"required"`
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/status", s.handleStatus)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.POST("/presence", s.handlePresence)
	return r
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

func (s *Server) handlePresence(c *gin.Context) {
	if s.push == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "presence input is not enabled"})
		return
	}
	var req presenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.push.Report(*req.Present)
	c.JSON(http.StatusAccepted, gin.H{"present": *req.Present})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("http listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
