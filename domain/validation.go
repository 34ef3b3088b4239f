package domain

import (
	"fmt"
	"procurement/bizerror"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}()

// Validate checks the binding tags of an input struct, the same tags gin binds with.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return &bizerror.ErrBadParam{Cause: err}
	}
	return nil
}

// ValidateRequest checks r against the form field catalog and returns a copy whose
// custom values carry the kind of their field. Empty custom values are dropped.
func ValidateRequest(r Request, catalog []FormField) (Request, error) {
	for _, f := range catalog {
		if !f.IsStandard || !f.IsActive {
			continue
		}
		v, ok := r.StandardValue(f.ID)
		if !ok {
			continue
		}
		if f.Required && strings.TrimSpace(v) == "" {
			return r, fmt.Errorf("%w: %s", bizerror.ErrRequiredField, f.Label)
		}
		if f.Type == FieldDate && v != "" {
			if _, err := time.Parse(DateLayout, v); err != nil {
				return r, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", bizerror.ErrInvalidFieldValue, f.Label)
			}
		}
	}

	if err := ValidateItems(r.Items); err != nil {
		return r, err
	}
	typed, err := ValidateCustomFields(r.CustomFields, catalog)
	if err != nil {
		return r, err
	}
	r.CustomFields = typed
	return r, nil
}

// ValidateItems checks that every item is named and asks for at least one unit.
func ValidateItems(items RequestItems) error {
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("%w: item %d has no name", bizerror.ErrInvalidFieldValue, i+1)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %s quantity must be positive", bizerror.ErrInvalidFieldValue, item.Name)
		}
	}
	return nil
}

// ValidateCustomFields checks a complete set of custom values against the catalog
// and returns them typed by their field kind.
func ValidateCustomFields(values CustomFields, catalog []FormField) (CustomFields, error) {
	defs := make(map[string]FormField, len(catalog))
	for _, f := range catalog {
		defs[f.ID] = f
	}

	var typed CustomFields
	for id, v := range values {
		def, ok := defs[id]
		if !ok || def.IsStandard {
			return nil, fmt.Errorf("%w: unknown field %s", bizerror.ErrInvalidCustomField, id)
		}
		if v.Raw == "" {
			continue
		}
		if !def.IsActive {
			return nil, fmt.Errorf("%w: field %s is not active", bizerror.ErrInvalidCustomField, def.Label)
		}
		v.Kind = KindOf(def.Type)
		if v.Kind == KindDate {
			if _, ok := v.Date(); !ok {
				return nil, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", bizerror.ErrInvalidFieldValue, def.Label)
			}
		}
		if typed == nil {
			typed = CustomFields{}
		}
		typed[id] = v
	}

	for _, f := range catalog {
		if f.IsStandard || !f.IsActive || !f.Required {
			continue
		}
		if _, ok := typed[f.ID]; !ok {
			return nil, fmt.Errorf("%w: %s", bizerror.ErrRequiredField, f.Label)
		}
	}
	return typed, nil
}
