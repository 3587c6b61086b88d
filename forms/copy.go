package forms

// Sign-in banner reasons carried in the reason query parameter.
const (
	ReasonVerifySent      = "verify_sent"
	ReasonVerified        = "verified"
	ReasonExpired         = "expired"
	ReasonPasswordChanged = "password_changed"
	ReasonDeleted         = "deleted"
	ReasonError           = "error"
	ReasonLogout          = "logout"
)

var reasonMessages = map[string]*Message{
	ReasonVerifySent:      okMessage("Account created. Please check your email for the verification link."),
	ReasonVerified:        okMessage("Email verified. You can sign in now."),
	ReasonExpired:         errMessage("Your session has expired. Please sign in again."),
	ReasonPasswordChanged: okMessage("Your password was changed. Please sign in again."),
	ReasonDeleted:         okMessage("Your account was deleted."),
	ReasonError:           errMessage("Something went wrong. Please sign in again."),
	ReasonLogout:          okMessage("You have been signed out."),
}

// ReasonMessage returns the sign-in banner for a reason, or nil when the
// reason has none.
func ReasonMessage(reason string) *Message {
	m, ok := reasonMessages[reason]
	if !ok {
		return nil
	}
	out := *m
	return &out
}

const (
	msgEmailRequired       = "Email is required."
	msgEmailInvalid        = "Enter a valid email address."
	msgPasswordRequired    = "Password is required."
	msgFullNameRequired    = "Full name cannot be empty."
	msgPasswordTooShort    = "Password must be at least 8 characters."
	msgPasswordsMismatch   = "Passwords do not match."
	msgAcceptTerms         = "You must accept the terms to continue."
	msgResendNeedsEmail    = "Enter your email to resend the verification email."
	msgResendSent          = "Verification email sent again. Please check your inbox."
	msgResendFailed        = "Could not send the email. Please try again."
	msgTokenMissing        = "Verification token not found. Check the link."
	msgVerified            = "Email verified. You can sign in now."
	msgRegistered          = "Account created. Please check your email for the verification link."
	msgCurrentPwRequired   = "Current password is required."
	msgNewPwTooShort       = "New password must be at least 8 characters."
	msgNewPwSameAsCurrent  = "New password cannot be the same as the current one."
	msgNewPwMismatch       = "New passwords do not match."
	msgProfileUpdated      = "Profile updated."
	msgProfileUpdateFailed = "Update failed."
	msgPlanUpdated         = "Plan updated."
	msgPlanUpdateFailed    = "Could not change the plan."
	msgDeleteFailed        = "Could not delete the account."
	msgAccountLoadFailed   = "Could not load account details."
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxFullNameLength = 200
)
