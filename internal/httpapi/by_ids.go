package httpapi

import (
	"github.com/gin-gonic/gin"
)

type byIDsRequest struct {
	IDs []string `json:"ids"`
}

// handleByIDs implements POST /by_ids (spec §6): returns the chunks named
// by the request body's ids, in request order; unknown ids are omitted.
func (s *Server) handleByIDs(c *gin.Context) {
	appName := c.DefaultQuery("app_name", defaultAppName)

	var req byIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be {ids: [string]}")
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(200, gin.H{"app_name": appName, "results": []chunkView{}})
		return
	}

	chunks, err := s.Metadata.GetBatch(c.Request.Context(), req.IDs)
	if err != nil {
		backendError(c, "by_ids lookup failed", err)
		return
	}

	out := make([]chunkView, 0, len(req.IDs))
	for _, id := range req.IDs {
		ch, ok := chunks[id]
		if !ok {
			continue
		}
		out = append(out, viewChunk(ch))
	}
	c.JSON(200, gin.H{"app_name": appName, "results": out})
}
