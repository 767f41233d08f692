package mail

import "context"

// Sender represents an interface for sending transactional emails.
type Sender interface {
	Send(ctx context.Context, params SendParams) error
}

// SendParams represents the parameters for sending an email.
type SendParams struct {
	SendTo   string `json:"send_to"`       // Email address of the recipient
	Subject  string `json:"subject"`       // Subject of the email
	BodyHTML string `json:"body_html"`     // HTML body of the email
	Tag      string `json:"tag,omitempty"` // Optional tag for provider-side analytics
}

// Validate checks that the minimum required fields are present.
func (p SendParams) Validate() error {
	if p.SendTo == "" {
		return ErrMissingRecipient
	}
	if p.Subject == "" {
		return ErrMissingSubject
	}
	if p.BodyHTML == "" {
		return ErrMissingBody
	}
	return nil
}
