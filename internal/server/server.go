// Package server wires the reasoning pipeline behind an HTTP API.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"draftqa/config"
	"draftqa/internal/agent/core"
	"draftqa/internal/agent/telemetry"
	"draftqa/internal/corpus"
	"draftqa/internal/retrieval"
	"draftqa/internal/session"
	"draftqa/provider"
)

// Run builds every dependency from configuration and serves until the
// listener fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging.
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })

	var tele *telemetry.Telemetry
	if cfg.Telemetry.Enabled {
		tele = telemetry.New(prometheus.DefaultRegisterer)
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	ctx := context.Background()

	sessions, err := session.New(cfg.Session)
	if err != nil {
		return err
	}

	retriever, err := retrieval.New(cfg.Retrieval, cfg.Corpus.IndexPath)
	if err != nil {
		return err
	}

	// The local search mode needs the catalog loaded into its index; the
	// remote mode does not touch Postgres at all.
	var catalog *corpus.Catalog
	if cfg.Corpus.PostgresURL != "" {
		catalog, err = corpus.NewWithDSN(ctx, cfg.Corpus.PostgresURL)
		if err != nil {
			return err
		}
		if local, ok := retriever.(*retrieval.BleveRetriever); ok {
			chunks, err := catalog.Chunks(ctx)
			if err != nil {
				return err
			}
			if err := local.IndexChunks(chunks); err != nil {
				return err
			}
			baseLogger.Printf("indexed %d catalog chunks", len(chunks))
		}
	} else if cfg.Retrieval.Mode == "bleve" {
		return fmt.Errorf("retrieval.mode=bleve requires corpus.postgres_url")
	}

	llm, err := provider.New(cfg.LLM)
	if err != nil {
		return err
	}

	planner := core.NewPlanner(cfg.Retrieval.TopKDefault)
	synth := core.NewSynthesizer(llm, nil)
	orch := core.NewOrchestrator(planner, retriever, sessions, synth, tele, cfg.General.RequestTimeout, nil)

	secret := []byte(cfg.Server.JWTSecret)

	api := e.Group("/api")
	ah := &AnswerHandler{Orch: orch, Sessions: sessions}
	ah.Register(api, secret)
	sh := &SessionHandler{Sessions: sessions}
	sh.Register(api.Group("/session"), secret)
	if catalog != nil {
		ch := &CorpusHandler{Catalog: catalog}
		ch.Register(api.Group("/corpus"))
	}

	return e.Start(cfg.Server.Address)
}
