package processor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
)

// TypeConnection marks failures where Stripe could not be reached or its
// answer could not be read.
const TypeConnection = "api_connection_error"

// Error is a failed processor call.
type Error struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("stripe %s (%s): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("stripe %s: %s", e.Type, msg)
}

// HTTPStatus reports 402 for every processor failure surfaced to a client.
func (e *Error) HTTPStatus() int {
	return http.StatusPaymentRequired
}

// AsError returns err as a *Error. Errors that did not come back from
// Stripe as an error envelope become connection errors.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	return toError(err)
}

func toError(err error) *Error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return &Error{Type: TypeConnection, Message: err.Error()}
	}
	if se.OAuthError != "" {
		return &Error{
			StatusCode: se.HTTPStatusCode,
			Type:       "oauth_error",
			Code:       se.OAuthError,
			Message:    se.OAuthErrorDescription,
		}
	}
	typ := string(se.Type)
	if typ == "" {
		typ = "api_error"
	}
	return &Error{
		StatusCode: se.HTTPStatusCode,
		Type:       typ,
		Code:       string(se.Code),
		Message:    strings.TrimSpace(se.Msg),
	}
}
