package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", oneOf("development", "staging", "production"))
	_ = v.RegisterValidation("loglevel", oneOf("debug", "info", "warn", "error"))
	_ = v.RegisterValidation("ensemblemethod", oneOf("weighted"))
	_ = v.RegisterValidation("calibrationmethod", oneOf("isotonic", "none"))
	_ = v.RegisterValidation("protocol", oneOf("expanding", "fixed", "loso"))
	_ = v.RegisterValidation("datetime", validateDate)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	return validateCrossField(cfg)
}

func oneOf(values ...string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

// validateDate validates YYYY-MM-DD strings
func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.UsesPostgres() {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("feature_store driver postgres requires database host, name and user")
		}
		if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
			return fmt.Errorf("max_idle_connections cannot exceed max_connections")
		}
	}

	if cfg.FeatureStore.Driver != "postgres" && cfg.FeatureStore.Path == "" {
		return fmt.Errorf("feature_store driver %s requires a path", cfg.FeatureStore.Driver)
	}

	// Validate production environment requirements
	if cfg.IsProduction() && cfg.UsesPostgres() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Backtest.Protocol == "fixed" {
		if cfg.Backtest.Window <= 0 {
			return fmt.Errorf("backtest protocol fixed requires a positive window")
		}
		if len(cfg.Backtest.Seasons) > 0 && cfg.Backtest.Window >= len(cfg.Backtest.Seasons) {
			return fmt.Errorf("backtest window %d leaves no season to test", cfg.Backtest.Window)
		}
	}

	if name := cfg.Backtest.ScoringSystem; name != "" && len(cfg.Scoring.Systems) > 0 {
		if _, ok := cfg.Scoring.Systems[name]; !ok {
			return fmt.Errorf("backtest scoring_system %q is not defined under scoring.systems", name)
		}
	}
	for name, points := range cfg.Scoring.Systems {
		for _, p := range points {
			if p < 0 {
				return fmt.Errorf("scoring system %q has negative points", name)
			}
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "ensemblemethod":
			fmt.Fprintf(&b, "- Field '%s' must be 'weighted', got '%v'\n", field, value)
		case "calibrationmethod":
			fmt.Fprintf(&b, "- Field '%s' must be one of: isotonic, none, got '%v'\n", field, value)
		case "protocol":
			fmt.Fprintf(&b, "- Field '%s' must be one of: expanding, fixed, loso, got '%v'\n", field, value)
		case "datetime":
			fmt.Fprintf(&b, "- Field '%s' must be a YYYY-MM-DD date, got '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
