package dto

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"glasserp/internal/domain/tax"
	"glasserp/pkg/phone"
)

// RegisterValidators installs the custom tags used by request DTOs on gin's
// validator and makes JSON decoding reject unknown fields. Call once at startup.
//
//	state_code  two-digit GST state code
//	gstin       15-character GSTIN whose prefix is a state code
//	hsn         4, 6 or 8 digit HSN code
//	in_mobile   Indian mobile number in any common notation
func RegisterValidators() error {
	binding.EnableDecoderDisallowUnknownFields = true

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	tags := map[string]validator.Func{
		"state_code": func(fl validator.FieldLevel) bool { return tax.IsStateCode(fl.Field().String()) },
		"gstin": func(fl validator.FieldLevel) bool {
			_, err := tax.NormalizeGSTIN(fl.Field().String())
			return err == nil
		},
		"hsn":       func(fl validator.FieldLevel) bool { return tax.IsHSNFormat(fl.Field().String()) },
		"in_mobile": func(fl validator.FieldLevel) bool { return phone.IsMobile(fl.Field().String()) },
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}
