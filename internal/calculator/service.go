package calculator

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/unitprice/internal/common"
	"github.com/noah-isme/unitprice/internal/obs"
	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/render"
	"github.com/noah-isme/unitprice/internal/resilience"
)

// Service runs calculations, caching successful results and recording metrics.
type Service struct {
	cache  *Cache
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Cache  *Cache
	Logger zerolog.Logger
}

// Calculation is the payload returned for a successful calculation.
type Calculation struct {
	ID       string         `json:"id"`
	Result   pricing.Result `json:"result"`
	Exact    pricing.Result `json:"exact"`
	Rendered render.Output  `json:"rendered"`
	Cached   bool           `json:"cached"`
}

// NewService constructs a Service. The cache is optional.
func NewService(cfg ServiceConfig) *Service {
	return &Service{cache: cfg.Cache, logger: cfg.Logger}
}

// Calculate answers in and renders the outcome in format. Calculation
// failures are returned as *common.AppError with status 422, the error code
// and the rendered message in Details.
func (s *Service) Calculate(ctx context.Context, in pricing.Input, format render.Format) (Calculation, error) {
	ctx, span := obs.StartSpan(ctx, "calculator.Calculate",
		attribute.String("calc.base_unit", string(in.BaseUnit)),
		attribute.String("calc.desired_unit", string(in.DesiredUnit)),
	)
	defer span.End()

	key := cacheKey(in)
	var exact pricing.Result
	cached, err := s.cache.Get(ctx, key, &exact)
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		obs.ObserveCache("bypass")
		cached = false
	case err != nil:
		obs.ObserveCache("error")
		s.logger.Warn().Err(err).Str("key", key).Msg("calculation cache read failed")
		cached = false
	case cached:
		obs.ObserveCache("hit")
	case s.cache.Enabled():
		obs.ObserveCache("miss")
	}

	if !cached {
		exact, err = pricing.Calculate(in)
		if err != nil {
			code := pricing.Code(err)
			obs.ObserveCalculation("", code)
			span.SetStatus(codes.Error, code)
			s.logger.Debug().Err(err).Str("code", code).Msg("calculation rejected")
			return Calculation{}, s.toAppError(err, in, format)
		}
		if err := s.cache.Set(ctx, key, exact); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
			obs.ObserveCache("error")
			s.logger.Warn().Err(err).Str("key", key).Msg("calculation cache write failed")
		}
	}

	rendered, err := render.Result(exact, format)
	if err != nil {
		span.SetStatus(codes.Error, "render")
		return Calculation{}, common.Internal("could not render result", err)
	}
	obs.ObserveCalculation(string(exact.Kind), "ok")
	span.SetAttributes(attribute.String("calc.kind", string(exact.Kind)), attribute.Bool("calc.cached", cached))

	return Calculation{
		ID:       uuid.NewString(),
		Result:   exact.Rounded(),
		Exact:    exact,
		Rendered: rendered,
		Cached:   cached,
	}, nil
}

func (s *Service) toAppError(calcErr error, in pricing.Input, format render.Format) error {
	code := pricing.Code(calcErr)
	if code == "" {
		return common.Internal("internal error", calcErr)
	}
	appErr := common.Unprocessable(code, render.Message(calcErr, in.DesiredUnit), calcErr)
	if out, err := render.Error(calcErr, in.DesiredUnit, format); err == nil {
		appErr.Details = map[string]any{"rendered": out}
	}
	return appErr
}

func cacheKey(in pricing.Input) string {
	return common.Fingerprint(
		strconv.FormatFloat(in.BaseQuantity, 'g', -1, 64),
		string(in.BaseUnit),
		strconv.FormatFloat(in.BasePrice, 'g', -1, 64),
		strconv.FormatFloat(in.DesiredValue, 'g', -1, 64),
		string(in.DesiredUnit),
	)
}
