// Package server exposes the contract analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/ingest"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
)

// TextExtractor turns raw contract text into structured data. Satisfied by
// *extraction.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, contractText string) (contract.ExtractedContract, error)
}

// ClauseAnalyzer runs the tracked clauses through risk analysis. Satisfied
// by *risk.Analyzer.
type ClauseAnalyzer interface {
	AnalyzeAll(ctx context.Context, clauses []contract.Clause, contractType string, profile contract.RiskProfile) ([]contract.ClauseAnalysis, []contract.ClauseFailure, error)
}

// ReportBuilder assembles the final analysis. Satisfied by *report.Builder.
type ReportBuilder interface {
	Build(ctx context.Context, extracted contract.ExtractedContract, verdicts []contract.ClauseAnalysis, failures []contract.ClauseFailure) contract.ContractAnalysis
}

// HealthChecker reports backend reachability. Satisfied by vectorindex.Index.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config tunes the HTTP server.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 10 << 20
	}
}

// Server wires the analysis pipeline behind an echo router.
type Server struct {
	echo      *echo.Echo
	config    Config
	extractor TextExtractor
	analyzer  ClauseAnalyzer
	reporter  ReportBuilder
	health    HealthChecker
	logger    *logging.Logger
}

// New builds the server and registers routes.
func New(
	cfg Config,
	extractor TextExtractor,
	analyzer ClauseAnalyzer,
	reporter ReportBuilder,
	health HealthChecker,
	logger *logging.Logger,
) (*Server, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if reporter == nil {
		return nil, fmt.Errorf("report builder is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	cfg.ApplyDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		config:    cfg,
		extractor: extractor,
		analyzer:  analyzer,
		reporter:  reporter,
		health:    health,
		logger:    logger.Named("server"),
	}

	e.Use(middleware.Recover())
	e.Use(s.requestID())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", cfg.MaxUploadBytes)))

	e.GET("/healthz", s.handleHealthz)
	e.POST("/analyze", s.handleAnalyze)

	return s, nil
}

// requestID stamps every request with an ID, carried in the context for
// log correlation and echoed back in the X-Request-Id header.
func (s *Server) requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			ctx := logging.WithRequestID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.echo.Start(s.config.Addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	ctx := c.Request().Context()
	if s.health != nil {
		if err := s.health.Health(ctx); err != nil {
			s.logger.Warn(ctx, "health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart upload (file, optional contract_type and
// risk_profile fields) and runs the full pipeline. Per-clause failures are
// reported in the response body, never as an HTTP failure.
func (s *Server) handleAnalyze(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "multipart field 'file' is required"})
	}

	profile := contract.ProfileConservative
	if raw := c.FormValue("risk_profile"); raw != "" {
		profile, err = contract.ParseRiskProfile(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "could not read upload"})
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, s.config.MaxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "could not read upload"})
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "upload exceeds size limit"})
	}

	text, err := ingest.ExtractText(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) || errors.Is(err, ingest.ErrEmptyDocument) {
			return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	extracted, err := s.extractor.Extract(ctx, text)
	if err != nil {
		s.logger.Error(ctx, "contract extraction failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "contract extraction failed"})
	}

	contractType := c.FormValue("contract_type")
	if contractType == "" {
		contractType = extracted.ContractType
	}

	verdicts, failures, err := s.analyzer.AnalyzeAll(ctx, extracted.Clauses, contractType, profile)
	if err != nil {
		s.logger.Error(ctx, "clause analysis aborted", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "clause analysis failed"})
	}

	analysis := s.reporter.Build(ctx, extracted, verdicts, failures)

	s.logger.Info(ctx, "contract analyzed",
		zap.String("filename", fileHeader.Filename),
		zap.Int("clauses_analyzed", len(verdicts)),
		zap.Int("clauses_failed", len(failures)),
	)
	return c.JSON(http.StatusOK, analysis)
}
