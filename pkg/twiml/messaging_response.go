// Package twiml renders the TwiML documents returned from Twilio messaging webhooks.
package twiml

import (
	"encoding/xml"
)

const ContentType = "application/xml"

type Message struct {
	Body string `xml:",chardata"`
}

// MessagingResponse is the <Response> root; each Message becomes one outbound WhatsApp message.
type MessagingResponse struct {
	XMLName  xml.Name  `xml:"Response"`
	Messages []Message `xml:"Message"`
}

func NewMessagingResponse(bodies ...string) *MessagingResponse {
	r := &MessagingResponse{}
	for _, b := range bodies {
		r.Message(b)
	}
	return r
}

func (r *MessagingResponse) Message(body string) *MessagingResponse {
	r.Messages = append(r.Messages, Message{Body: body})
	return r
}

func (r *MessagingResponse) Marshal() ([]byte, error) {
	out, err := xml.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// Parse reads a TwiML messaging document.
func Parse(data []byte) (*MessagingResponse, error) {
	var r MessagingResponse
	if err := xml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
