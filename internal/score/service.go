package score

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/homestride/homestride/internal/amenity"
	"github.com/homestride/homestride/internal/geo"
	"github.com/homestride/homestride/internal/telemetry"
	"github.com/homestride/homestride/internal/transit"
)

// CommuteResolver resolves a commute. *transit.Service implements it.
type CommuteResolver interface {
	Commute(ctx context.Context, home, work geo.Point, pref transit.Preference) (*transit.CommuteResult, error)
}

// AmenityResolver resolves amenity requests. *amenity.Resolver implements it.
type AmenityResolver interface {
	Resolve(ctx context.Context, home geo.Point, reqs []amenity.Request) []amenity.Resolution
}

// ServiceConfig holds configuration for the score service.
type ServiceConfig struct {
	Commutes   CommuteResolver
	Amenities  AmenityResolver
	Aggregator *Aggregator
	Logger     zerolog.Logger
}

// Service computes walking scores.
type Service struct {
	commutes  CommuteResolver
	amenities AmenityResolver
	agg       *Aggregator
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewService creates a new score service.
func NewService(cfg ServiceConfig) *Service {
	agg := cfg.Aggregator
	if agg == nil {
		agg = NewAggregator(Config{})
	}
	return &Service{
		commutes:  cfg.Commutes,
		amenities: cfg.Amenities,
		agg:       agg,
		tracer:    telemetry.Tracer("github.com/homestride/homestride/internal/score"),
		logger:    cfg.Logger,
	}
}

// Aggregator returns the aggregator used for totals.
func (s *Service) Aggregator() *Aggregator {
	return s.agg
}

// ComputeScore resolves the commute and every amenity, then aggregates them.
//
// The commute row, when present, comes first; amenity rows follow in request
// order. A contribution that cannot be resolved is left out and reported in
// Result.Warnings. Only an invalid home location fails the computation.
func (s *Service) ComputeScore(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "score.ComputeScore")
	defer span.End()

	if err := req.Home.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid home")
		return nil, fmt.Errorf("%w: %w", ErrMissingHome, err)
	}

	var (
		rows     []BreakdownItem
		warnings []string
	)

	if req.Work != nil {
		row, err := s.commuteRow(ctx, req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn().Err(err).Msg("commute contribution skipped")
			warnings = append(warnings, "commute skipped: "+err.Error())
		} else {
			rows = append(rows, row)
		}
	}

	if len(req.Amenities) > 0 && s.amenities != nil {
		reqs := make([]amenity.Request, len(req.Amenities))
		for i, a := range req.Amenities {
			if a.VisitsPerWeek == 0 {
				a.VisitsPerWeek = amenity.DefaultVisitsPerWeek
			}
			a.VisitsPerWeek = amenity.ClampVisits(a.VisitsPerWeek)
			reqs[i] = a
		}

		for _, res := range s.amenities.Resolve(ctx, req.Home, reqs) {
			if res.Status != amenity.StatusResolved {
				warnings = append(warnings, amenityWarning(res))
				continue
			}
			rows = append(rows, AmenityRow(res.Request.AmenityType, res.Place.Name, res.Route, res.Request.VisitsPerWeek))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	result := s.agg.Aggregate(rows)
	result.Warnings = warnings

	span.SetAttributes(
		attribute.Int("score.rows", len(result.Breakdown)),
		attribute.Int("score.warnings", len(warnings)),
		attribute.Float64("score.weekly_minutes", result.TotalWeeklyWalkMin),
		attribute.String("score.grade", result.Grade),
	)

	s.logger.Info().
		Int("rows", len(result.Breakdown)).
		Float64("weekly_minutes", result.TotalWeeklyWalkMin).
		Str("grade", result.Grade).
		Msg("score computed")

	return &result, nil
}

// Recompute is Aggregator.Recompute.
func (s *Service) Recompute(prev Result, rowIndex int, amenityType string, visits int) (Result, error) {
	return s.agg.Recompute(prev, rowIndex, amenityType, visits)
}

func (s *Service) commuteRow(ctx context.Context, req Request) (BreakdownItem, error) {
	if s.commutes == nil {
		return BreakdownItem{}, errors.New("no commute resolver configured")
	}

	workDays := DefaultWorkDaysPerWeek
	if req.WorkDaysPerWeek != nil {
		workDays = max(0, min(MaxWorkDaysPerWeek, *req.WorkDaysPerWeek))
	}
	pref := req.CommuteMode
	if pref == "" {
		pref = transit.PreferTransit
	}

	c, err := s.commutes.Commute(ctx, req.Home, *req.Work, pref)
	if err != nil {
		return BreakdownItem{}, err
	}
	return CommuteRow(c, pref, workDays), nil
}

func amenityWarning(res amenity.Resolution) string {
	msg := fmt.Sprintf("%s skipped: %s", res.Request.AmenityType, res.Reason)
	if res.Err != nil {
		msg += ": " + res.Err.Error()
	}
	return msg
}
