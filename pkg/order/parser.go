package order

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"whatsapp-orderbot-be/pkg/store"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CanonicalFormat is the example shown to senders whose order could not be parsed.
const CanonicalFormat = "Name, Product, Quantity"

const (
	ReasonTooFewFields     = "expected " + CanonicalFormat
	ReasonNonNumericQty    = "quantity must be numeric"
	ReasonNonPositiveQty   = "quantity must be greater than zero"
	ReasonQuantityTooLarge = "quantity is too large"
)

var (
	ErrMalformedOrder = errors.New("malformed order")

	endMarkerPattern = regexp.MustCompile(`\.{2,}`)
	separatorPattern = regexp.MustCompile(`[.,;]`)
	nonDigitPattern  = regexp.MustCompile(`\D`)
)

// ParsedOrder is one order extracted from a single inbound text.
type ParsedOrder struct {
	Name        string
	Product     string
	Quantity    int
	SenderPhone string
	RawMessage  string
}

// MalformedOrderError describes why a text could not be read as an order.
type MalformedOrderError struct {
	Reason string
}

func (e *MalformedOrderError) Error() string {
	return "malformed order: " + e.Reason
}

func (e *MalformedOrderError) Is(target error) bool {
	return target == ErrMalformedOrder
}

func malformed(reason string) error {
	return &MalformedOrderError{Reason: reason}
}

// Parse reads "Name, Product, Quantity" from free text. Anything after a run
// of two or more dots is treated as trailing commentary and dropped. Periods,
// commas and semicolons all separate fields; fields past the third are ignored.
func Parse(text string, senderId string) (*ParsedOrder, error) {
	body := text
	if loc := endMarkerPattern.FindStringIndex(body); loc != nil {
		body = body[:loc[0]]
	}

	body = separatorPattern.ReplaceAllString(body, ",")

	var fields []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			fields = append(fields, part)
		}
	}

	if len(fields) < 3 {
		return nil, malformed(ReasonTooFewFields)
	}

	digits := nonDigitPattern.ReplaceAllString(fields[2], "")
	if digits == "" {
		return nil, malformed(ReasonNonNumericQty)
	}

	quantity, err := strconv.Atoi(digits)
	if err != nil {
		return nil, malformed(ReasonQuantityTooLarge)
	}
	if quantity <= 0 {
		return nil, malformed(ReasonNonPositiveQty)
	}

	// Casers keep state and must not be shared across goroutines.
	title := cases.Title(language.Und)

	return &ParsedOrder{
		Name:        title.String(fields[0]),
		Product:     title.String(fields[1]),
		Quantity:    quantity,
		SenderPhone: store.StripChannelPrefix(senderId),
		RawMessage:  text,
	}, nil
}
