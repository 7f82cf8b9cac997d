// Command simulate_webhook posts Twilio-style messages to a running server and prints the replies.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"whatsapp-orderbot-be/pkg/twiml"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	endpoint := flag.String("url", "http://localhost:3000/api/whatsapp/v1/webhook", "webhook URL")
	from := flag.String("from", "whatsapp:+254700000001", "sender id")
	to := flag.String("to", "whatsapp:+14155238886", "bot number")
	flag.Parse()

	client := &http.Client{Timeout: 60 * time.Second}

	messages := flag.Args()
	if len(messages) > 0 {
		for _, m := range messages {
			send(client, *endpoint, *from, *to, m)
		}
		return
	}

	color.Cyan("💬 Chatting as %s (Ctrl+D to quit)", *from)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		send(client, *endpoint, *from, *to, scanner.Text())
	}
}

func send(client *http.Client, endpoint, from, to, body string) {
	form := url.Values{
		"MessageSid": {"SM" + strings.ReplaceAll(uuid.NewString(), "-", "")},
		"From":       {from},
		"To":         {to},
		"Body":       {body},
	}

	start := time.Now()
	resp, err := client.PostForm(endpoint, form)
	if err != nil {
		color.Red("Request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		color.Red("Read failed: %v", err)
		return
	}

	if resp.StatusCode != http.StatusOK {
		color.Red("HTTP %s: %s", resp.Status, string(raw))
		return
	}

	reply, err := twiml.Parse(raw)
	if err != nil {
		color.Red("Invalid TwiML: %v\n%s", err, string(raw))
		return
	}

	for _, m := range reply.Messages {
		color.Green("%s", m.Body)
	}
	color.New(color.FgHiBlack).Printf("(%s)\n", time.Since(start).Round(time.Millisecond))
}
