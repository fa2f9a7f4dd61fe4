package httpapi

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const (
	defaultNeighborsRadius = 1
	defaultNeighborsLimit  = 10
)

// handleNeighbors implements GET /neighbors (spec §6): chunks sharing
// (app_name, source_path) whose seq_idx is within radius of the requested
// seq_idx, up to limit, ordered by seq_idx ascending.
func (s *Server) handleNeighbors(c *gin.Context) {
	appName := c.DefaultQuery("app_name", defaultAppName)
	sourcePath := c.Query("source_path")
	if sourcePath == "" {
		badRequest(c, "source_path is required")
		return
	}

	seqIdx, ok := parseIntParam(c, "seq_idx", 0)
	if !ok {
		return
	}
	if c.Query("seq_idx") == "" {
		badRequest(c, "seq_idx is required")
		return
	}
	radius, ok := parseIntParam(c, "radius", defaultNeighborsRadius)
	if !ok {
		return
	}
	limit, ok := parseIntParam(c, "limit", defaultNeighborsLimit)
	if !ok {
		return
	}
	if radius < 0 {
		badRequest(c, "radius must be non-negative")
		return
	}
	if limit <= 0 {
		badRequest(c, "limit must be positive")
		return
	}

	chunks, err := s.Metadata.Neighbors(c.Request.Context(), appName, sourcePath, seqIdx, radius, limit)
	if err != nil {
		backendError(c, fmt.Sprintf("neighbors lookup failed for %s", sourcePath), err)
		return
	}

	out := make([]chunkView, len(chunks))
	for i, ch := range chunks {
		out[i] = viewChunk(ch)
	}
	c.JSON(200, gin.H{"app_name": appName, "source_path": sourcePath, "results": out})
}
