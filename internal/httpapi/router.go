// Package httpapi exposes the three endpoints of spec.md §6 ("EXTERNAL
// INTERFACES") over gin: GET /retrieve, GET /neighbors, POST /by_ids. It is
// a thin request router in front of internal/search.Planner and
// internal/store.MetadataStore — no retrieval logic lives here.
package httpapi

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/aman-cerp/docretrieve/internal/search"
	"github.com/aman-cerp/docretrieve/internal/store"
)

// Server wires the Planner and MetadataStore into a gin.Engine.
type Server struct {
	Planner  *search.Planner
	Metadata store.MetadataStore
	Logger   *slog.Logger
}

// NewServer builds a Server ready to have its routes registered.
func NewServer(planner *search.Planner, metadata store.MetadataStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Planner: planner, Metadata: metadata, Logger: logger}
}

// NewRouter builds the gin.Engine exposing spec.md §6's HTTP API.
func NewRouter(planner *search.Planner, metadata store.MetadataStore, logger *slog.Logger) *gin.Engine {
	s := NewServer(planner, metadata, logger)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/retrieve", s.handleRetrieve)
	r.GET("/neighbors", s.handleNeighbors)
	r.POST("/by_ids", s.handleByIDs)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.Logger.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
		)
	}
}
