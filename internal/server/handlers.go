package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"draftqa/internal/agent/core"
	"draftqa/internal/corpus"
	"draftqa/internal/session"
	"draftqa/provider"
)

var validate = validator.New()

// AnswerHandler serves question answering and request status lookups.
type AnswerHandler struct {
	Orch     *core.Orchestrator
	Sessions session.Store
}

func (h *AnswerHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withIdentity(next, secret) })
	g.POST("/answer", h.answer)
	g.GET("/requests/:id", h.status)
}

type answerRequest struct {
	Question  string          `json:"question"`
	TopK      int             `json:"top_k"`
	QuoteMode bool            `json:"quote_mode"`
	Objects   []objectPayload `json:"objects"`
}

type objectPayload struct {
	ID     string       `json:"id"`
	Type   string       `json:"type" validate:"required"`
	Layer  string       `json:"layer" validate:"required"`
	Start  *core.Point  `json:"start"`
	End    *core.Point  `json:"end"`
	Points []core.Point `json:"points"`
}

func (h *AnswerHandler) answer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}

	user := currentUser(c)
	ctx := c.Request().Context()

	// Inline objects replace the session set before answering, so the
	// question is always evaluated against the payload it arrived with.
	if req.Objects != nil {
		records, err := toRecords(req.Objects)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if _, err := h.Sessions.PutObjects(ctx, user, records); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	q := core.Question{Text: req.Question, TopK: req.TopK, QuoteMode: req.QuoteMode}
	answer, err := h.Orch.Answer(ctx, user, q)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRetrievalUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "retrieval unavailable")
		case errors.Is(err, provider.ErrUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "generation unavailable")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) status(c echo.Context) error {
	st, err := h.Orch.GetStatus(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

// SessionHandler manages the per-user session object set.
type SessionHandler struct {
	Sessions session.Store
}

func (h *SessionHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withIdentity(next, secret) })
	g.PUT("/objects", h.put)
	g.GET("/objects", h.get)
	g.DELETE("/objects", h.clear)
}

type putObjectsRequest struct {
	Objects []objectPayload `json:"objects" validate:"required,dive"`
}

func (h *SessionHandler) put(c echo.Context) error {
	var req putObjectsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	records, err := toRecords(req.Objects)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	count, err := h.Sessions.PutObjects(c.Request().Context(), currentUser(c), records)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (h *SessionHandler) get(c echo.Context) error {
	set, err := h.Sessions.GetObjects(c.Request().Context(), currentUser(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, set)
}

func (h *SessionHandler) clear(c echo.Context) error {
	if err := h.Sessions.ClearObjects(c.Request().Context(), currentUser(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// toRecords validates each payload record and converts it to the core type.
func toRecords(payload []objectPayload) ([]core.ObjectRecord, error) {
	records := make([]core.ObjectRecord, 0, len(payload))
	for _, p := range payload {
		if err := validate.Struct(p); err != nil {
			return nil, err
		}
		records = append(records, core.ObjectRecord{
			ID:     p.ID,
			Type:   p.Type,
			Layer:  p.Layer,
			Start:  p.Start,
			End:    p.End,
			Points: p.Points,
		})
	}
	return records, nil
}

// CorpusHandler exposes read-only catalog statistics.
type CorpusHandler struct {
	Catalog *corpus.Catalog
}

func (h *CorpusHandler) Register(g *echo.Group) {
	g.GET("/stats", h.stats)
}

func (h *CorpusHandler) stats(c echo.Context) error {
	stats, err := h.Catalog.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
