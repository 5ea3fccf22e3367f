package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/soltixdb/trendscope/internal/analytics/anomaly"
)

// ErrInvalidParams is returned when an analysis parameter is out of range or cannot be
// converted to its numeric type.
var ErrInvalidParams = errors.New("invalid analysis params")

// Params is the tuning of one analysis run. Keys follow the flat request mapping.
type Params struct {
	IQRK        float64 `mapstructure:"iqr_k" json:"iqr_k" validate:"finite,gt=0"`
	ZThresh     float64 `mapstructure:"z_thresh" json:"z_thresh" validate:"finite,gt=0"`
	MAWindow    int     `mapstructure:"ma_window" json:"ma_window" validate:"min=1"`
	MAPct       float64 `mapstructure:"ma_pct" json:"ma_pct" validate:"finite,gt=0"`
	GrubbsAlpha float64 `mapstructure:"grubbs_alpha" json:"grubbs_alpha" validate:"finite,gt=0,lt=1"`
	TrendDegree int     `mapstructure:"trend_degree" json:"trend_degree" validate:"min=0,max=10"`
}

var paramsValidator = newParamsValidator()

func newParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// integralFloatHook rejects fractional numbers decoded into int fields instead of
// truncating them
func integralFloatHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}

	var f float64
	switch v := data.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	default:
		return data, nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("expected an integer, got %v", f)
	}
	return data, nil
}

// DefaultParams returns the parameters used when a request leaves a key out
func DefaultParams() Params {
	defaults := anomaly.DefaultConfig()
	return Params{
		IQRK:        defaults.IQRMultiplier,
		ZThresh:     defaults.ZThreshold,
		MAWindow:    defaults.WindowSize,
		MAPct:       defaults.DeviationPct,
		GrubbsAlpha: defaults.Alpha,
		TrendDegree: 1,
	}
}

// ParamsFromMap builds Params from a flat mapping on top of DefaultParams.
func ParamsFromMap(values map[string]interface{}) (Params, error) {
	return DefaultParams().Merge(values)
}

// Merge returns a copy of p overridden by values. Unknown keys are ignored and numeric
// strings are accepted. Integer fields reject fractional values. The result is validated.
func (p Params) Merge(values map[string]interface{}) (Params, error) {
	merged := p
	if len(values) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.DecodeHookFuncType(integralFloatHook),
			Result:           &merged,
			TagName:          "mapstructure",
		})
		if err != nil {
			return p, fmt.Errorf("failed to create params decoder: %w", err)
		}
		if err := decoder.Decode(values); err != nil {
			return p, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
	}

	if err := merged.Validate(); err != nil {
		return p, err
	}
	return merged, nil
}

// Validate checks every field against its allowed range
func (p Params) Validate() error {
	err := paramsValidator.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(messages, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return fmt.Sprintf("%s must be a finite number, got %v", fe.Field(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("%s must be less than %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s, got %v", fe.Field(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// DetectorConfig maps the detector thresholds onto an anomaly.DetectorConfig
func (p Params) DetectorConfig() anomaly.DetectorConfig {
	return anomaly.DetectorConfig{
		IQRMultiplier: p.IQRK,
		ZThreshold:    p.ZThresh,
		WindowSize:    p.MAWindow,
		DeviationPct:  p.MAPct,
		Alpha:         p.GrubbsAlpha,
	}
}
