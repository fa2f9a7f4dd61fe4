package httpapi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aman-cerp/docretrieve/internal/search"
)

var signalPattern = regexp.MustCompile(`^(hybrid|dense|sparse)$`)

const (
	defaultAppName       = "claims"
	defaultTopK          = 8
	defaultPoolHybrid    = 80
	defaultPoolSingle    = 50
	defaultMinHits       = 0
	defaultProximity     = 0
)

// handleRetrieve implements GET /retrieve (spec §6): parses and validates
// query parameters, runs the Planner, and serializes the Response per
// §4.10. Malformed parameters are a 400 (spec §7 "Input error"); a Planner
// error (embedder/backend failure) is a 503 (spec §7 "Backend transient
// error"); everything else — including legitimately empty results — is a
// 200, per spec §6.
func (s *Server) handleRetrieve(c *gin.Context) {
	q, ok := s.parseRetrieveQuery(c)
	if !ok {
		return
	}

	resp, err := s.Planner.Retrieve(c.Request.Context(), q)
	if err != nil {
		backendError(c, "retrieval failed", err)
		return
	}
	c.JSON(200, resp)
}

func (s *Server) parseRetrieveQuery(c *gin.Context) (search.Query, bool) {
	text := c.Query("q")
	if strings.TrimSpace(text) == "" {
		badRequest(c, "q is required")
		return search.Query{}, false
	}

	appName := c.DefaultQuery("app_name", defaultAppName)

	topK, ok := parseIntParam(c, "top_k", defaultTopK)
	if !ok {
		return search.Query{}, false
	}
	if topK < 0 {
		badRequest(c, "top_k must be non-negative")
		return search.Query{}, false
	}

	signal := c.DefaultQuery("signal", string(search.SignalHybrid))
	if !signalPattern.MatchString(signal) {
		badRequest(c, fmt.Sprintf("signal must match %s", signalPattern.String()))
		return search.Query{}, false
	}

	defaultPool := defaultPoolSingle
	if signal == string(search.SignalHybrid) {
		defaultPool = defaultPoolHybrid
	}
	pool, ok := parseIntParam(c, "pool", defaultPool)
	if !ok {
		return search.Query{}, false
	}
	if pool < 0 {
		badRequest(c, "pool must be non-negative")
		return search.Query{}, false
	}

	minHits, ok := parseIntParam(c, "min_hits", defaultMinHits)
	if !ok {
		return search.Query{}, false
	}
	proximity, ok := parseIntParam(c, "proximity", defaultProximity)
	if !ok {
		return search.Query{}, false
	}

	var must []string
	if raw := c.Query("must"); raw != "" {
		must = strings.Fields(raw)
	}
	var mustPhrases []string
	if raw := c.Query("must_phrases"); raw != "" {
		for _, p := range strings.Split(raw, ";") {
			p = strings.TrimSpace(p)
			if p != "" {
				mustPhrases = append(mustPhrases, p)
			}
		}
	}

	k1, ok := parseFloatParamOptional(c, "bm25_k1")
	if !ok {
		return search.Query{}, false
	}
	b, ok := parseFloatParamOptional(c, "bm25_b")
	if !ok {
		return search.Query{}, false
	}

	return search.Query{
		Text:        text,
		App:         appName,
		TopK:        topK,
		Pool:        pool,
		Signal:      search.Signal(signal),
		Must:        must,
		MustPhrases: mustPhrases,
		MinHits:     minHits,
		Proximity:   proximity,
		BM25K1:      k1,
		BM25B:       b,
	}, true
}

func parseIntParam(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("%s must be an integer", name))
		return 0, false
	}
	return v, true
}

func parseFloatParamOptional(c *gin.Context, name string) (*float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, fmt.Sprintf("%s must be a number", name))
		return nil, false
	}
	return &v, true
}
