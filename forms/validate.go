package forms

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(msgEmailRequired), is.Email.Error(msgEmailInvalid)),
		validation.Field(&r.Password, validation.Required.Error(msgPasswordRequired)),
	)
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FullName      string `json:"fullName"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Confirm       string `json:"confirm"`
	AcceptedTerms bool   `json:"acceptedTerms"`
}

var registerFieldOrder = []string{"acceptedTerms", "fullName", "email", "password", "confirm"}

func (r RegisterInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AcceptedTerms, validation.Required.Error(msgAcceptTerms)),
		validation.Field(&r.FullName,
			validation.Required.Error(msgFullNameRequired),
			validation.Length(1, maxFullNameLength),
		),
		validation.Field(&r.Email, validation.Required.Error(msgEmailRequired), is.Email.Error(msgEmailInvalid)),
		validation.Field(&r.Password,
			validation.Required.Error(msgPasswordTooShort),
			validation.Length(minPasswordLength, maxPasswordLength).Error(msgPasswordTooShort),
		),
		validation.Field(&r.Confirm, validation.By(stringEquals(r.Password, msgPasswordsMismatch))),
	)
}

type passwordChangeInput struct {
	Current string `json:"current"`
	New     string `json:"new"`
	Confirm string `json:"confirm"`
}

var passwordChangeFieldOrder = []string{"current", "new", "confirm"}

func (r passwordChangeInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Current, validation.Required.Error(msgCurrentPwRequired)),
		validation.Field(&r.New,
			validation.Required.Error(msgNewPwTooShort),
			validation.Length(minPasswordLength, maxPasswordLength).Error(msgNewPwTooShort),
			validation.By(stringDiffers(r.Current, msgNewPwSameAsCurrent)),
		),
		validation.Field(&r.Confirm, validation.By(stringEquals(r.New, msgNewPwMismatch))),
	)
}

func stringEquals(str, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(msg)
		}
		return nil
	}
}

func stringDiffers(str, msg string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s == str {
			return errors.New(msg)
		}
		return nil
	}
}

// firstMessage returns the message of the first failing field in order.
func firstMessage(err error, order ...string) string {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	for _, name := range order {
		if fieldErr, ok := fieldErrs[name]; ok && fieldErr != nil {
			return fieldErr.Error()
		}
	}
	for _, fieldErr := range fieldErrs {
		if fieldErr != nil {
			return fieldErr.Error()
		}
	}
	return err.Error()
}
