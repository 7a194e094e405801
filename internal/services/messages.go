package services

import (
	"errors"

	"contactbook/internal/apperr"
)

// Caller-visible messages.
const (
	MsgSignupFieldsRequired   = "UserName and Password Both are Required"
	MsgUserNameTaken          = "User Name Already Taken!"
	MsgInvalidCredentials     = "Either UserName Or Password Invalid"
	MsgPasswordRequired       = "Password Is Required To Update"
	MsgUserNotFound           = "Unable To Find User With Id %d"
	MsgContactNamesRequired   = "First Name and Last Name Required"
	MsgInvalidEmail           = "Please Provide a Valid Email Address"
	MsgInvalidMobile          = "Please Provide a Valid Mobile Number"
	MsgInvalidLandline        = "Please Provide a Valid LandLine Number"
	MsgContactUpdateNotFound  = "Unable To Find Contact To Update"
	MsgContactDeleteNotFound  = "Unable To Find Contact To Delete"
	MsgContactNotFoundForUser = "Contact Not Found For Id %d for User %d"
)

// notFoundAs turns a bare not-found reported by a repository into a
// caller-visible error. Anything else is returned as is.
func notFoundAs(err error, message string) error {
	var appErr *apperr.Error
	if errors.Is(err, apperr.ErrNotFound) && !errors.As(err, &appErr) {
		visible := apperr.NotFound(message)
		visible.Err = err
		return visible
	}
	return err
}
