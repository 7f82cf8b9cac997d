package dto

// TwilioWebhookRequest is the form body Twilio posts for an inbound WhatsApp message.
type TwilioWebhookRequest struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	Body       string `form:"Body"`
	From       string `form:"From"`
	To         string `form:"To"`
	NumMedia   string `form:"NumMedia"`
}

type HealthResponse struct {
	Status       string          `json:"status"`
	Dependencies map[string]bool `json:"dependencies"`
	Gauges       map[string]int  `json:"gauges,omitempty"`
}
