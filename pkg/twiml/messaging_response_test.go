package twiml

import (
	"strings"
	"testing"
)

func TestMessagingResponse_Marshal(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain",
			body: "Hello",
			want: `<Response><Message>Hello</Message></Response>`,
		},
		{
			name: "escapes markup",
			body: "Tom & Jerry <3",
			want: `<Response><Message>Tom &amp; Jerry &lt;3</Message></Response>`,
		},
		{
			name: "keeps emoji",
			body: "✅ Order received!",
			want: `<Response><Message>✅ Order received!</Message></Response>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewMessagingResponse(tt.body).Marshal()
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			got := string(out)
			if !strings.HasPrefix(got, `<?xml version="1.0" encoding="UTF-8"?>`) {
				t.Errorf("missing xml declaration: %q", got)
			}
			if !strings.HasSuffix(got, tt.want) {
				t.Errorf("Marshal() = %q, want suffix %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	out, _ := NewMessagingResponse("line one\nline two").Marshal()

	r, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(r.Messages) != 1 || r.Messages[0].Body != "line one\nline two" {
		t.Errorf("Parse() = %+v", r.Messages)
	}
}
