package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gzhole/lastlayer/internal/backend"
	"github.com/gzhole/lastlayer/internal/scanner"
	"github.com/gzhole/lastlayer/internal/scoring"
	"github.com/gzhole/lastlayer/internal/threat"
	"github.com/gzhole/lastlayer/internal/wire"
)

type scanRequest struct {
	Text   string   `json:"text"`
	Ignore []string `json:"ignore"`
}

type scanResponse struct {
	*scanner.Result
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
	RequestID string             `json:"request_id"`
}

type threatInfo struct {
	Index       int         `json:"index"`
	Name        threat.Kind `json:"name"`
	Weight      float64     `json:"weight"`
	Description string      `json:"description"`
}

type threatsResponse struct {
	DefaultWeight float64               `json:"default_weight"`
	Threats       []threatInfo          `json:"threats"`
	Interactions  []scoring.Interaction `json:"interactions"`
}

type handler struct {
	scanner *scanner.Scanner
	logger  *zap.Logger
}

// scan handles POST /v1/scan. ?explain=true adds the score breakdown.
func (h *handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	ignore, err := threat.ParseKinds(req.Ignore)
	if err != nil {
		h.fail(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.scanner.Scan(c.Request.Context(), req.Text, ignore...)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("scan failed", zap.String("request_id", requestIDFrom(c)), zap.Error(err))
		}
		h.fail(c, status, err.Error())
		return
	}

	resp := scanResponse{Result: res, RequestID: requestIDFrom(c)}
	if explain, _ := strconv.ParseBool(c.Query("explain")); explain {
		b := h.scanner.Explain(res)
		resp.Breakdown = &b
	}
	c.JSON(http.StatusOK, resp)
}

// threats handles GET /v1/threats.
func (h *handler) threats(c *gin.Context) {
	model := h.scanner.Model()
	resp := threatsResponse{
		DefaultWeight: model.DefaultWeight(),
		Interactions:  model.Interactions(),
	}
	for _, k := range threat.All() {
		resp.Threats = append(resp.Threats, threatInfo{
			Index:       k.Index(),
			Name:        k,
			Weight:      model.Weight(k),
			Description: k.Description(),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.scanner.Backend().Name()})
}

func (h *handler) fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "request_id": requestIDFrom(c)})
}

// statusFor maps scan errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, threat.ErrInvalidThreatKind):
		return http.StatusBadRequest
	case errors.Is(err, backend.ErrUnavailable), errors.Is(err, wire.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
