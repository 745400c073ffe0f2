package email

// Message is the payload accepted by the email service's /send endpoint.
type Message struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
	ReplyTo string `json:"reply_to,omitempty" validate:"omitempty,email"`
}
