package services

import (
	"contactbook/internal/apperr"
	"contactbook/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

// ContactValidator checks the optional contact fields. Empty fields are
// always accepted.
type ContactValidator struct {
	validate *validator.Validate
	region   string
}

// NewContactValidator creates a validator that parses numbers without a
// +<country> prefix as belonging to defaultRegion.
func NewContactValidator(defaultRegion string) *ContactValidator {
	return &ContactValidator{
		validate: validator.New(),
		region:   defaultRegion,
	}
}

// Validate returns a BadRequest naming the first offending field.
func (v *ContactValidator) Validate(f models.ContactFields) error {
	if f.Email != "" {
		if err := v.validate.Var(f.Email, "email"); err != nil {
			return apperr.BadRequest(MsgInvalidEmail)
		}
	}
	if f.MobileNumber != "" && !v.validPhone(f.MobileNumber, phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE) {
		return apperr.BadRequest(MsgInvalidMobile)
	}
	if f.LandlineNumber != "" && !v.validPhone(f.LandlineNumber, phonenumbers.FIXED_LINE, phonenumbers.FIXED_LINE_OR_MOBILE) {
		return apperr.BadRequest(MsgInvalidLandline)
	}
	return nil
}

// validPhone accepts a number that parses and is either valid for its region
// or of one of the accepted types.
func (v *ContactValidator) validPhone(number string, accepted ...phonenumbers.PhoneNumberType) bool {
	parsed, err := phonenumbers.Parse(number, v.region)
	if err != nil {
		return false
	}
	if phonenumbers.IsValidNumber(parsed) {
		return true
	}
	numberType := phonenumbers.GetNumberType(parsed)
	for _, t := range accepted {
		if numberType == t {
			return true
		}
	}
	return false
}
