package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Теги для go-playground/validator.
const (
	TagINN             = "inn"
	TagINNOrganization = "inn_org"
	TagINNIndividual   = "inn_ip"
)

// RegisterTags регистрирует теги inn, inn_org и inn_ip. Поле проходит проверку только при результате VALID.
func RegisterTags(v *validator.Validate) error {
	tags := map[string]PayerType{
		TagINN:             PayerTypeUnspecified,
		TagINNOrganization: PayerTypeOrganization,
		TagINNIndividual:   PayerTypeIndividual,
	}

	for tag, payerType := range tags {
		if err := v.RegisterValidation(tag, innFunc(payerType)); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}

	return nil
}

func innFunc(expected PayerType) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if !field.IsValid() || !field.CanInterface() {
			return false
		}
		return Validate(field.Interface(), expected) == ResultValid
	}
}
