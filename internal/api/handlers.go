package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"option-calc-go/internal/database"
	"option-calc-go/internal/models"
	"option-calc-go/internal/valuation"
)

// Calculator is the valuation engine as seen by the handlers.
type Calculator interface {
	Compute(in valuation.TradeInput) valuation.TradeResult
	Conventions() valuation.Conventions
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	log      *zap.Logger
	engine   Calculator
	profiles database.FeeProfileRepository
	metrics  *Metrics

	startTime time.Time
}

// NewHandler creates a new Handler.
func NewHandler(log *zap.Logger, engine Calculator, profiles database.FeeProfileRepository, metrics *Metrics) *Handler {
	registerJSONFieldNames()
	return &Handler{log: log, engine: engine, profiles: profiles, metrics: metrics, startTime: time.Now()}
}

var jsonNamesOnce sync.Once

// registerJSONFieldNames makes validator report json field names instead of Go names.
func registerJSONFieldNames() {
	jsonNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// Calc values one option position (POST /api/calc).
func (h *Handler) Calc(c *gin.Context) {
	var req CalcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, "binding", bindingError(err))
		return
	}

	profile, err := h.resolveProfile(c.Request.Context(), req.FeeProfile)
	if errors.Is(err, database.ErrProfileNotFound) {
		h.reject(c, "fee_profile", ErrorResponse{
			Error:  "unknown fee profile",
			Fields: []FieldError{{Field: "fee_profile", Message: err.Error()}},
		})
		return
	}
	if err != nil {
		h.log.Error("Failed to resolve fee profile", zap.String("fee_profile", req.FeeProfile), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to resolve fee profile", RequestID: c.GetString(RequestIDKey)})
		return
	}

	fees := req.ResolveFees(profile)
	in, err := req.ToTradeInput(fees)
	if err != nil {
		h.reject(c, "validation", validationError(err))
		return
	}

	res := h.engine.Compute(in)

	if h.metrics != nil {
		h.metrics.CalculationsTotal.WithLabelValues(
			in.Market.String(), in.UnderlyingType.String(), in.OptionType.String(), in.Direction.String(),
		).Inc()
	}
	h.log.Debug("Position valued",
		zap.String("request_id", c.GetString(RequestIDKey)),
		zap.String("market", in.Market.String()),
		zap.String("underlying", in.Underlying),
		zap.String("option_type", in.OptionType.String()),
		zap.String("direction", in.Direction.String()),
		zap.Int("days_to_expiry", res.DaysToExpiry),
		zap.String("notional", res.Notional.String()),
		zap.String("net_return", res.NetReturnBeforeSettlement.String()),
	)

	profileName := ""
	if profile != nil {
		profileName = profile.Name
	}
	c.JSON(http.StatusOK, NewCalcResponse(res, fees, profileName))
}

// resolveProfile returns the named profile, or the default one when name is empty.
func (h *Handler) resolveProfile(ctx context.Context, name string) (*models.FeeProfile, error) {
	if h.profiles == nil {
		if name != "" {
			return nil, database.ErrProfileNotFound
		}
		return nil, nil
	}
	if name == "" {
		return h.profiles.Default(ctx)
	}
	return h.profiles.FindByName(ctx, name)
}

func (h *Handler) reject(c *gin.Context, reason string, resp ErrorResponse) {
	if h.metrics != nil {
		h.metrics.RejectionsTotal.WithLabelValues(reason).Inc()
	}
	resp.RequestID = c.GetString(RequestIDKey)
	c.JSON(http.StatusBadRequest, resp)
}

// FeeProfiles lists the configured fee profiles (GET /api/fee-profiles).
func (h *Handler) FeeProfiles(c *gin.Context) {
	if h.profiles == nil {
		c.JSON(http.StatusOK, []models.FeeProfile{})
		return
	}
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list fee profiles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list fee profiles", RequestID: c.GetString(RequestIDKey)})
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// Conventions describes the active broker conventions (GET /api/conventions).
func (h *Handler) Conventions(c *gin.Context) {
	c.JSON(http.StatusOK, NewConventionsResponse(h.engine.Conventions()))
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
}

// Health reports liveness (GET /health).
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartTime: h.startTime.Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
	})
}

// bindingError turns a gin binding failure into field errors.
func bindingError(err error) ErrorResponse {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Message: tagMessage(fe)})
		}
		return ErrorResponse{Error: "invalid request", Fields: fields}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return ErrorResponse{
			Error:  "invalid request",
			Fields: []FieldError{{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()}},
		}
	}

	return ErrorResponse{Error: "invalid request body: " + err.Error()}
}

// validationError turns domain validation errors into field errors.
func validationError(err error) ErrorResponse {
	var verrs valuation.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, FieldError{Field: e.Field, Message: e.Message})
		}
		return ErrorResponse{Error: "invalid trade", Fields: fields}
	}
	return ErrorResponse{Error: err.Error()}
}

// fieldPath drops the root struct name from the namespace: CalcRequest.settings.bsmv_percent -> settings.bsmv_percent.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "datetime":
		return "must be a YYYY-MM-DD date"
	}
	return "failed " + fe.Tag() + " validation"
}
