package core

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"labsite/internal/types"
)

// slugPattern matches lowercase kebab-case identifiers used for page and
// post slugs: segments of [a-z0-9] joined by single hyphens.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validator wraps go-playground/validator and registers the domain-specific
// rules used by request DTOs.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// ValidationError describes a single field failure in a client-friendly form.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult aggregates all failures for a struct.
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid reports whether the result contains no errors.
func (r ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// NewValidator creates a new Validator and registers custom validation tags.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New()

	// slug: lowercase kebab-case identifier.
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates a request DTO. On failure it returns a
// *types.AppError whose code reflects the first failing rule and whose
// details carry the full list of field errors under "validation_errors".
func (v *Validator) ValidateStruct(s interface{}) error {
	result := v.ValidateStructWithResult(s)
	if result.IsValid() {
		return nil
	}

	first := result.Errors[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": result.Errors},
	)
}

// ValidateStructWithResult validates a struct and returns every field
// failure rather than stopping at the first.
func (v *Validator) ValidateStructWithResult(s interface{}) ValidationResult {
	err := v.validate.Struct(s)
	if err == nil {
		return ValidationResult{}
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-field error (e.g. passing a non-struct). Treat as a single
		// generic failure.
		v.logger.Error("validator returned non-field error", "error", err)
		return ValidationResult{Errors: []ValidationError{{
			Field:   "",
			Code:    string(types.ErrCodeValidationFieldInvalid),
			Message: "invalid request",
		}}}
	}

	result := ValidationResult{Errors: make([]ValidationError, 0, len(verrs))}
	for _, fe := range verrs {
		result.Errors = append(result.Errors, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageForTag(fe),
		})
	}
	return result
}

// codeForTag maps a validation tag to the domain error code returned to
// clients.
func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "email":
		return types.ErrCodeValidationInvalidEmail
	case "slug":
		return types.ErrCodeValidationInvalidSlug
	default:
		return types.ErrCodeValidationFieldInvalid
	}
}

// messageForTag produces a human-readable message for a field error.
func messageForTag(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "slug":
		return field + " must be a lowercase kebab-case slug"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}
