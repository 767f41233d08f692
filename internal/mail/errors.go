package mail

import "errors"

var (
	ErrInvalidConfig    = errors.New("invalid mail config")
	ErrFailedToSend     = errors.New("failed to send email")
	ErrMissingRecipient = errors.New("missing recipient email")
	ErrMissingSubject   = errors.New("missing email subject")
	ErrMissingBody      = errors.New("missing email body")
)
