package schema

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
)

// Schema is the resolved Model + its Fields, the unit the registry
// caches and hands to callers.
type Schema struct {
	Model  Model
	Fields []Field
}

// IsSystem reports whether this Schema's Model is system-protected.
func (s Schema) IsSystem() bool { return s.Model.IsSystem() }

// FieldByName returns the Field named name, if present.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.FieldName == name {
			return f, true
		}
	}
	return Field{}, false
}

// ValidateOrThrow enforces required, type coercion, minimum/maximum,
// pattern, enum_values, and is_array against a record payload
// (spec.md §4.2). It writes coerced values and defaults back into
// payload in place and returns nil, or a *apperr.Error with
// CodeValidation.
func (s Schema) ValidateOrThrow(payload map[string]any) error {
	for _, f := range s.Fields {
		v, present := payload[f.FieldName]

		if !present || v == nil {
			if f.Required && f.Default == nil {
				return apperr.Newf(apperr.CodeValidation, "field %q is required", f.FieldName)
			}
			if f.Default != nil && !present {
				payload[f.FieldName] = *f.Default
			}
			continue
		}

		coerced, err := coerceAndValidate(f, v)
		if err != nil {
			return err
		}
		payload[f.FieldName] = coerced
	}
	return nil
}

func coerceAndValidate(f Field, v any) (any, error) {
	if f.IsArray {
		arr, ok := v.([]any)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "field %q must be an array", f.FieldName)
		}
		out := make([]any, len(arr))
		for i, item := range arr {
			c, err := coerceScalar(f, item)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return coerceScalar(f, v)
}

func coerceScalar(f Field, v any) (any, error) {
	switch f.Type {
	case FieldText, FieldDate, FieldTimestamp, FieldUUID, FieldBinary:
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "field %q must be a string", f.FieldName)
		}
		if f.Type == FieldUUID {
			if _, err := uuid.Parse(s); err != nil {
				return nil, apperr.Newf(apperr.CodeValidation, "field %q is not a valid uuid", f.FieldName)
			}
		}
		if f.Type == FieldTimestamp || f.Type == FieldDate {
			layout := time.RFC3339
			if f.Type == FieldDate {
				layout = "2006-01-02"
			}
			if _, err := time.Parse(layout, s); err != nil {
				return nil, apperr.Newf(apperr.CodeValidation, "field %q is not a valid %s", f.FieldName, f.Type)
			}
		}
		if err := validateStringConstraints(f, s); err != nil {
			return nil, err
		}
		return s, nil

	case FieldInteger, FieldBigserial:
		n, ok := asFloat(v)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "field %q must be numeric", f.FieldName)
		}
		if err := validateNumericConstraints(f, n); err != nil {
			return nil, err
		}
		return int64(n), nil

	case FieldDecimal, FieldNumeric:
		n, ok := asFloat(v)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "field %q must be numeric", f.FieldName)
		}
		if err := validateNumericConstraints(f, n); err != nil {
			return nil, err
		}
		return n, nil

	case FieldBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, apperr.Newf(apperr.CodeValidation, "field %q must be a boolean", f.FieldName)
		}
		return b, nil

	case FieldJSONB:
		return v, nil

	default:
		return v, nil
	}
}

func validateStringConstraints(f Field, s string) error {
	if len(f.EnumValues) > 0 && !contains(f.EnumValues, s) {
		return apperr.Newf(apperr.CodeValidation, "field %q must be one of %v", f.FieldName, f.EnumValues)
	}
	if f.Pattern != nil {
		re, err := regexp.Compile(*f.Pattern)
		if err != nil {
			return apperr.Newf(apperr.CodeValidation, "field %q has an invalid pattern configured", f.FieldName)
		}
		if !re.MatchString(s) {
			return apperr.Newf(apperr.CodeValidation, "field %q does not match required pattern", f.FieldName)
		}
	}
	if f.Minimum != nil && float64(len(s)) < *f.Minimum {
		return apperr.Newf(apperr.CodeValidation, "field %q is shorter than minimum length %v", f.FieldName, *f.Minimum)
	}
	if f.Maximum != nil && float64(len(s)) > *f.Maximum {
		return apperr.Newf(apperr.CodeValidation, "field %q is longer than maximum length %v", f.FieldName, *f.Maximum)
	}
	return nil
}

func validateNumericConstraints(f Field, n float64) error {
	if f.Minimum != nil && n < *f.Minimum {
		return apperr.Newf(apperr.CodeValidation, "field %q is below minimum %v", f.FieldName, *f.Minimum)
	}
	if f.Maximum != nil && n > *f.Maximum {
		return apperr.Newf(apperr.CodeValidation, "field %q is above maximum %v", f.FieldName, *f.Maximum)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// ValidateModelName is a guard used when creating Models (InsertModel
// and CreateTableDDL).
func ValidateModelName(name string) error {
	if !ModelNamePattern.MatchString(name) {
		return apperr.Newf(apperr.CodeValidation, "model_name %q must match %s", name, ModelNamePattern.String())
	}
	return nil
}

// ValidateFieldName mirrors ValidateModelName for field_name.
func ValidateFieldName(name string) error {
	if !FieldNamePattern.MatchString(name) {
		return apperr.Newf(apperr.CodeValidation, "field_name %q must match %s", name, FieldNamePattern.String())
	}
	return nil
}

// tableIdentifierPattern is what every rendered SQL identifier must
// match (spec.md §8 testable property 4).
var tableIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// QuoteIdentifier validates name against tableIdentifierPattern and
// double-quotes it; callers pass only names that have already been
// validated against ModelNamePattern/FieldNamePattern, this is strictly
// defense in depth.
func QuoteIdentifier(name string) (string, error) {
	if !tableIdentifierPattern.MatchString(name) {
		return "", fmt.Errorf("unsafe identifier %q", name)
	}
	return `"` + name + `"`, nil
}
