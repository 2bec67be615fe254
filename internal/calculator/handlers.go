package calculator

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/unitprice/internal/common"
	"github.com/noah-isme/unitprice/internal/obs"
	"github.com/noah-isme/unitprice/internal/presets"
	"github.com/noah-isme/unitprice/internal/pricing"
	"github.com/noah-isme/unitprice/internal/render"
	"github.com/noah-isme/unitprice/internal/units"
)

// Handler exposes the calculator endpoints.
type Handler struct {
	service       *Service
	presets       *presets.Catalog
	validate      *validator.Validate
	defaultFormat render.Format
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
	// Presets defaults to the built-in examples.
	Presets       *presets.Catalog
	Validator     *validator.Validate
	DefaultFormat render.Format
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = NewValidator()
	}
	format := cfg.DefaultFormat
	if format == "" {
		format = render.FormatText
	}
	catalog := cfg.Presets
	if catalog == nil {
		catalog = presets.NewCatalog()
	}
	return &Handler{service: cfg.Service, presets: catalog, validate: v, defaultFormat: format}
}

// NewValidator returns a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// number decodes a JSON number, a numeric string or null. Anything that is
// not a number decodes as NaN and is rejected by the calculation itself.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = number(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = number(common.ParseNumber(s))
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*n = number(math.NaN())
		return nil
	}
	*n = number(v)
	return nil
}

type calculateRequest struct {
	BaseQuantity number `json:"baseQuantity"`
	BaseUnit     string `json:"baseUnit" validate:"required,max=32"`
	BasePrice    number `json:"basePrice"`
	DesiredValue number `json:"desiredValue"`
	DesiredUnit  string `json:"desiredUnit" validate:"required,max=32"`
	Format       string `json:"format" validate:"omitempty,oneof=text html json"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Calculate handles POST /api/v1/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "calculator service not configured", nil)
		return
	}
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, common.BadRequest("invalid payload", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, validationError(err))
		return
	}
	format, err := render.ParseFormat(req.Format, h.defaultFormat)
	if err != nil {
		h.writeError(w, r, common.BadRequest("unknown format", err))
		return
	}
	in := pricing.Input{
		BaseQuantity: float64(req.BaseQuantity),
		BaseUnit:     units.Resolve(req.BaseUnit),
		BasePrice:    float64(req.BasePrice),
		DesiredValue: float64(req.DesiredValue),
		DesiredUnit:  units.Resolve(req.DesiredUnit),
	}
	h.run(w, r, in, format)
}

// CalculateQuery handles GET /api/v1/calculate with form-style parameters.
func (h *Handler) CalculateQuery(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "calculator service not configured", nil)
		return
	}
	q := r.URL.Query()
	format, err := render.ParseFormat(q.Get("format"), h.defaultFormat)
	if err != nil {
		h.writeError(w, r, common.BadRequest("unknown format", err))
		return
	}
	in := pricing.Input{
		BaseQuantity: common.ParseNumber(q.Get("baseQty")),
		BaseUnit:     units.Resolve(q.Get("baseUnit")),
		BasePrice:    common.ParseNumber(q.Get("basePrice")),
		DesiredValue: common.ParseNumber(q.Get("desiredValue")),
		DesiredUnit:  units.Resolve(q.Get("desiredUnit")),
	}
	h.run(w, r, in, format)
}

// Units handles GET /api/v1/units.
func (h *Handler) Units(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	common.Data(w, http.StatusOK, units.Supported())
}

// Presets handles GET /api/v1/presets.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, h.presets.List())
}

// Preset handles GET /api/v1/presets/{id}.
func (h *Handler) Preset(w http.ResponseWriter, r *http.Request) {
	p, err := h.presets.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, presetError(err))
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Defaults handles GET /api/v1/defaults.
func (h *Handler) Defaults(w http.ResponseWriter, r *http.Request) {
	common.Data(w, http.StatusOK, presets.Defaults())
}

// PresetCalculate handles POST /api/v1/presets/{id}/calculate.
func (h *Handler) PresetCalculate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "calculator service not configured", nil)
		return
	}
	p, err := h.presets.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, presetError(err))
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"), h.defaultFormat)
	if err != nil {
		h.writeError(w, r, common.BadRequest("unknown format", err))
		return
	}
	obs.Annotate(r.Context(), "preset", p.ID)
	h.run(w, r, p.Input(), format)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, in pricing.Input, format render.Format) {
	calc, err := h.service.Calculate(r.Context(), in, format)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obs.Annotate(r.Context(), "calc_result", string(calc.Result.Kind))
	common.Data(w, http.StatusOK, calc)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		obs.Annotate(r.Context(), "calc_result", appErr.Code)
	}
	common.WriteError(w, err)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.BadRequest("invalid payload", err)
	}
	fields := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return common.NewAppError("VALIDATION_ERROR", "invalid payload", http.StatusBadRequest, err).
		WithDetails(map[string]any{"fields": fields})
}

func presetError(err error) error {
	if errors.Is(err, presets.ErrNotFound) {
		return common.NotFound("preset not found", err)
	}
	return err
}
