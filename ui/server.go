// Package ui serves the experiment monitor: a small JSON API over the
// result store plus a rendered report per experiment.
package ui

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopuf/domain/core"
	"gopuf/ports"
)

// Server exposes stored experiment results over HTTP.
type Server struct {
	router *gin.Engine
	store  ports.ResultStorePort
	logger *log.Logger
}

// NewServer creates the monitor server and registers its routes.
func NewServer(store ports.ResultStorePort, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		router: gin.Default(),
		store:  store,
		logger: logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/api/experiments", s.handleListExperiments)
	s.router.GET("/api/experiments/:id", s.handleGetExperiment)
	s.router.GET("/experiments/:id/report", s.handleReport)
}

// Run starts the server on the given address.
func (s *Server) Run(addr string) error {
	s.logger.Printf("[monitor] listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListExperiments(c *gin.Context) {
	results, err := s.store.ListResults(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": results})
}

func (s *Server) handleGetExperiment(c *gin.Context) {
	id, err := core.ParseExperimentID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.store.GetResult(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleReport(c *gin.Context) {
	id, err := core.ParseExperimentID(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.store.GetResult(c.Request.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.String(http.StatusNotFound, "experiment not found")
			return
		}
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", RenderReportHTML(res))
}
