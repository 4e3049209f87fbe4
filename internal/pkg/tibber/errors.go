package tibber

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrTransport            = errors.New("tibber transport error")
	ErrDecode               = errors.New("unable to decode tibber response")
	ErrNoPriceData          = errors.New("no price data for today")
	ErrNoNotificationResult = errors.New("no push notification result")
)

// HTTPError is returned when the API answers with a non 2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tibber http error: status %d: %s", e.StatusCode, e.Body)
}

type GraphQLErrorEntry struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLError is returned when the response carries a top level errors field.
type GraphQLError struct {
	Errors []GraphQLErrorEntry
	Raw    string
}

func (e *GraphQLError) Error() string {
	if len(e.Errors) == 0 {
		return "tibber graphql error: " + e.Raw
	}
	messages := lo.Map(e.Errors, func(entry GraphQLErrorEntry, _ int) string {
		return entry.Message
	})
	return "tibber graphql error: " + strings.Join(messages, "; ")
}
