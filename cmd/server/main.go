// Copyright 2025 E-Com Video Insider Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main is the entry point for the video insider backend server.
//
// The application runs a Gin web server exposing a REST API that turns a
// short-video share URL into a structured creative brief: scraped
// engagement metadata, a multimodal AI breakdown of the video's structure,
// an optional transcript, and JSON/Markdown exports. The server is
// instrumented with OpenTelemetry for logging, tracing, and metrics.
//
// Functions:
//   - main: Sets up configuration, telemetry, application state, routes,
//     and graceful shutdown.
//   - AnalysisRouter: Registers the analyze, user, and run-history routes.
//   - requireToken: Gin middleware enforcing bearer-token authorization
//     against the configured quota store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ecom-insider/video-insider/internal/core/cor"
	"github.com/ecom-insider/video-insider/internal/core/model"
	"github.com/ecom-insider/video-insider/internal/core/services"
	"github.com/ecom-insider/video-insider/internal/telemetry"
)

const accountContextKey = "account"

func main() {
	// Configuration first: the logging setup needs the service name.
	config := GetConfig()

	telemetry.SetupLogging(config.Application.Name)
	slog.Info("Logging initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := telemetry.SetupOpenTelemetry(ctx, config)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	InitState(ctx)
	slog.Info("Initialized State")

	r := gin.Default()

	// Trace every incoming request, and keep CORS permissive: the UI is
	// served from a separate origin during development.
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(cors.Default())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "E-Com Video Insider API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"analyze":   "/api/v1/analyze",
				"health":    "/health",
				"user_info": "/api/v1/user",
				"runs":      "/api/v1/runs",
			},
		})
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":            "healthy",
			"apify_configured":  state.config.Apify.APIToken != "",
			"gemini_configured": state.config.GenAI.APIKey != "",
		})
	})

	apiV1 := r.Group("/api/v1")
	{
		AnalysisRouter(apiV1)
	}

	port := config.Application.Port
	if port == 0 {
		port = 8080
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
		// Analysis runs take minutes; the write timeout has to cover a
		// full pipeline execution.
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready", "port", port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed", "error", err)
	}

	log.Println("Server exiting")
}

// requireToken extracts the bearer token and resolves it against the quota
// store. consume controls whether the request burns a unit of monthly
// quota; read-only endpoints authorize without consuming.
func requireToken(consume bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		var account *services.Account
		var err error
		if consume {
			account, err = state.quotaStore.Consume(token)
		} else {
			account, err = state.quotaStore.Authorize(token)
		}
		switch err {
		case nil:
		case services.ErrUnknownToken:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api token"})
			return
		case services.ErrQuotaExhausted:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "monthly quota exhausted"})
			return
		case services.ErrRateLimited:
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, slow down"})
			return
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Set(accountContextKey, account)
		c.Next()
	}
}

// analysisErrorBody builds the error response for a failed run. An
// unparsable model response keeps its raw text for manual inspection;
// hand it to the caller instead of burying it in the server log.
func analysisErrorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var malformed *model.MalformedResponseError
	if errors.As(err, &malformed) {
		body["raw_model_output"] = malformed.RawText
	}
	return body
}

// analyzeRequest is the analyze endpoint's body. direct marks video_url as
// an already-resolved media file, skipping the scraper.
type analyzeRequest struct {
	VideoURL string `json:"video_url" binding:"required"`
	Direct   bool   `json:"direct"`
}

// AnalysisRouter registers the authenticated API routes.
//
// Endpoints:
//   - POST /analyze: Runs the full pipeline for a video URL and returns
//     the completed report. Consumes quota.
//   - GET /user: Returns the caller's account and quota usage.
//   - GET /runs: Lists completed runs, newest first.
//   - GET /runs/:id/export?format=json|markdown: Downloads a run as a
//     document.
func AnalysisRouter(r *gin.RouterGroup) {
	r.GET("/user", requireToken(false), func(c *gin.Context) {
		account := c.MustGet(accountContextKey).(*services.Account)
		c.JSON(http.StatusOK, account)
	})

	r.POST("/analyze", requireToken(true), func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account := c.MustGet(accountContextKey).(*services.Account)
		slog.InfoContext(c.Request.Context(), "analysis requested",
			slog.String("user", account.Username), slog.String("url", req.VideoURL))

		progress := func(percent int, stage string) {
			slog.InfoContext(c.Request.Context(), "pipeline progress",
				slog.Int("percent", percent), slog.String("stage", stage))
		}

		var run, err = state.runAnalysis(c.Request.Context(), req, progress)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "analysis failed", slog.Any("error", err))
			c.JSON(http.StatusInternalServerError, analysisErrorBody(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":         true,
			"id":              run.ID,
			"metadata":        run.Metadata,
			"analysis":        run.Analysis,
			"transcript":      run.Transcript,
			"engagement_rate": run.EngagementRate,
			"timestamp":       run.Timestamp.Format(time.RFC3339),
			"quota_remaining": account.QuotaRemaining,
		})
	})

	r.GET("/runs", requireToken(false), func(c *gin.Context) {
		c.JSON(http.StatusOK, state.runHistory.List())
	})

	r.GET("/runs/:id/export", requireToken(false), func(c *gin.Context) {
		run := state.runHistory.Get(c.Param("id"))
		if run == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}

		switch c.DefaultQuery("format", "json") {
		case "json":
			body, err := state.exportService.RenderJSON(c.Request.Context(), run)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.JSONFileName(run)))
			c.Data(http.StatusOK, "application/json", body)
		case "markdown":
			body, err := state.exportService.RenderMarkdown(c.Request.Context(), run)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.MarkdownFileName(run)))
			c.Data(http.StatusOK, "text/markdown", body)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or markdown"})
		}
	})
}

// runAnalysis executes the pipeline and records the run in history.
func (s *StateManager) runAnalysis(ctx context.Context, req analyzeRequest, progress cor.ProgressFunc) (*model.PipelineRun, error) {
	var run *model.PipelineRun
	var err error
	if req.Direct {
		run, err = s.pipeline.RunFromMedia(ctx, req.VideoURL, progress)
	} else {
		run, err = s.pipeline.Run(ctx, req.VideoURL, progress)
	}
	if err != nil {
		return nil, err
	}
	s.recordRun(ctx, run)
	return run, nil
}
