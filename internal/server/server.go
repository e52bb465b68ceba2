// Package server exposes the evidence sources over HTTP. Every data endpoint
// answers with the standard evidence envelope; request problems answer with a
// status/message DTO.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/datasource/gnomad"
	"github.com/cancervariants/evidence-normalization/internal/etl"
	"github.com/cancervariants/evidence-normalization/internal/evidence"
	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

// HotspotSource answers mutation hotspot queries.
type HotspotSource interface {
	MutationHotspots(soID, vrsVariationID string) (evidence.Response, error)
}

// SummarySource answers per-gene cancer type summary queries.
type SummarySource interface {
	CancerTypesSummary(hgncSymbol string) (evidence.Response, error)
}

// FrequencySource answers gnomAD queries.
type FrequencySource interface {
	Frequency(ctx context.Context, variantID string, rg gnomad.ReferenceGenome) (evidence.Response, error)
	LiftoverTo38(ctx context.Context, gnomadVariantID string) (evidence.Response, error)
	LiftoverTo37(ctx context.Context, gnomadVariantID string) (evidence.Response, error)
	ClinvarVariationID(ctx context.Context, gnomadVariantID string, rg gnomad.ReferenceGenome) (evidence.Response, error)
}

// Server wires the evidence sources into an echo router. A nil source leaves
// its endpoints answering 503.
type Server struct {
	echo      *echo.Echo
	logger    *zap.Logger
	version   string
	hotspots  HotspotSource
	summaries SummarySource
	gnomad    FrequencySource
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// New builds the router. version is reported by the service-info endpoint.
func New(version string, hotspots HotspotSource, summaries SummarySource, frequencies FrequencySource) *Server {
	s := &Server{
		echo:      echo.New(),
		logger:    zap.NewNop(),
		version:   version,
		hotspots:  hotspots,
		summaries: summaries,
		gnomad:    frequencies,
	}
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET},
	}))

	s.echo.GET("/evidence/service-info", s.serviceInfo)
	s.echo.GET("/evidence/cancer_hotspots/mutation_hotspots", s.mutationHotspots)
	s.echo.GET("/evidence/cbioportal/cancer_types_summary", s.cancerTypesSummary)
	s.echo.GET("/evidence/gnomad/frequency_data", s.frequencyData)
	s.echo.GET("/evidence/gnomad/liftover_38_to_37", s.liftover38To37)
	s.echo.GET("/evidence/gnomad/liftover_37_to_38", s.liftover37To38)
	s.echo.GET("/evidence/gnomad/clinvar_variation_id", s.clinvarVariationID)
	return s
}

// SetLogger sets the logger for request failures.
func (s *Server) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Router exposes the underlying echo instance, e.g. for tests.
func (s *Server) Router() *echo.Echo {
	return s.echo
}

// Start blocks serving on the given port.
func (s *Server) Start(port string) error {
	return s.echo.Start(":" + port)
}

func (s *Server) serviceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"id":          "org.cancervariants.evidence-normalization",
		"name":        "VICC Evidence Normalization",
		"description": "Normalizes evidence for cancer variants",
		"version":     s.version,
		"organization": map[string]string{
			"name": "Variant Interpretation for Cancer Consortium",
			"url":  "https://cancervariants.org",
		},
	})
}

func (s *Server) mutationHotspots(c echo.Context) error {
	if s.hotspots == nil {
		return unavailable(c, "mutation hotspots source not loaded")
	}
	soID := c.QueryParam("so_id")
	vrsID := c.QueryParam("vrs_variation_id")
	if soID == "" || vrsID == "" {
		return badRequest(c, "so_id and vrs_variation_id are required")
	}
	response, err := s.hotspots.MutationHotspots(soID, vrsID)
	if err != nil {
		return s.internal(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) cancerTypesSummary(c echo.Context) error {
	if s.summaries == nil {
		return unavailable(c, "cancer types summary source not loaded")
	}
	symbol := c.QueryParam("hgnc_symbol")
	if symbol == "" {
		return badRequest(c, "hgnc_symbol is required")
	}
	response, err := s.summaries.CancerTypesSummary(symbol)
	if err != nil {
		return s.internal(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) frequencyData(c echo.Context) error {
	if s.gnomad == nil {
		return unavailable(c, "gnomAD source not configured")
	}
	variantID := c.QueryParam("variant_id")
	if variantID == "" {
		return badRequest(c, "variant_id is required")
	}
	rg, ok := referenceGenomeParam(c)
	if !ok {
		return badRequest(c, "reference_genome must be GRCh37 or GRCh38")
	}
	response, err := s.gnomad.Frequency(c.Request().Context(), variantID, rg)
	if err != nil {
		return s.internal(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) liftover38To37(c echo.Context) error {
	return s.liftover(c, func(ctx context.Context, id string) (evidence.Response, error) {
		return s.gnomad.LiftoverTo37(ctx, id)
	})
}

func (s *Server) liftover37To38(c echo.Context) error {
	return s.liftover(c, func(ctx context.Context, id string) (evidence.Response, error) {
		return s.gnomad.LiftoverTo38(ctx, id)
	})
}

func (s *Server) liftover(c echo.Context, fn func(context.Context, string) (evidence.Response, error)) error {
	if s.gnomad == nil {
		return unavailable(c, "gnomAD source not configured")
	}
	gnomadID := c.QueryParam("gnomad_variant_id")
	if gnomadID == "" {
		return badRequest(c, "gnomad_variant_id is required")
	}
	response, err := fn(c.Request().Context(), gnomadID)
	if err != nil {
		return s.internal(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) clinvarVariationID(c echo.Context) error {
	if s.gnomad == nil {
		return unavailable(c, "gnomAD source not configured")
	}
	gnomadID := c.QueryParam("gnomad_variant_id")
	if gnomadID == "" {
		return badRequest(c, "gnomad_variant_id is required")
	}
	rg, ok := referenceGenomeParam(c)
	if !ok {
		return badRequest(c, "reference_genome must be GRCh37 or GRCh38")
	}
	response, err := s.gnomad.ClinvarVariationID(c.Request().Context(), gnomadID, rg)
	if err != nil {
		return s.internal(c, err)
	}
	return c.JSON(http.StatusOK, response)
}

// referenceGenomeParam reads the optional reference_genome parameter. An
// empty value means "no assembly pinned".
func referenceGenomeParam(c echo.Context) (gnomad.ReferenceGenome, bool) {
	switch rg := gnomad.ReferenceGenome(c.QueryParam("reference_genome")); rg {
	case "", gnomad.GRCh37, gnomad.GRCh38:
		return rg, true
	default:
		return "", false
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{
		Status:  http.StatusBadRequest,
		Message: message,
	})
}

func unavailable(c echo.Context, message string) error {
	return c.JSON(http.StatusServiceUnavailable, errorResponse{
		Status:  http.StatusServiceUnavailable,
		Message: message,
	})
}

func (s *Server) internal(c echo.Context, err error) error {
	s.logger.Error("request failed",
		zap.String("path", c.Request().URL.Path), zap.Error(err))

	message := "internal error"
	var mismatch *tabular.SchemaMismatchError
	switch {
	case errors.As(err, &mismatch):
		message = mismatch.Error()
	case errors.Is(err, etl.ErrUpstreamUnavailable):
		message = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, errorResponse{
		Status:  http.StatusInternalServerError,
		Message: message,
	})
}
