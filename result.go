package auth

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// ResultCode is the extensible status enum carried by every response
// envelope so the HTTP layer can map outcomes to status codes without
// inspecting error types.
type ResultCode string

const (
	ResultOK                 ResultCode = "OK"
	ResultInvalidToken       ResultCode = ResultCode(TextCodeInvalidToken)
	ResultExpiredToken       ResultCode = ResultCode(TextCodeExpiredToken)
	ResultNotFound           ResultCode = ResultCode(TextCodeNotFound)
	ResultTokenReuseDetected ResultCode = ResultCode(TextCodeTokenReuseDetected)
	ResultProvisioningFailed ResultCode = ResultCode(TextCodeProvisioningFailed)
	ResultValidationError    ResultCode = ResultCode(TextCodeValidationError)
	ResultError              ResultCode = "ERROR"
)

// Envelope is the uniform response shape: {resultCode, message, error,
// result}. Result carries the payload on success and is null on failure.
type Envelope struct {
	ResultCode ResultCode `json:"resultCode"`
	Message    string     `json:"message"`
	Error      string     `json:"error,omitempty"`
	Result     any        `json:"result"`
}

// OKEnvelope wraps a successful payload.
func OKEnvelope(result any) Envelope {
	return Envelope{
		ResultCode: ResultOK,
		Result:     result,
	}
}

// ErrorEnvelope recovers any failure into an envelope. Rich errors map to
// their text code; everything else degrades to a generic ERROR.
func ErrorEnvelope(err error) Envelope {
	if err == nil {
		return OKEnvelope(nil)
	}

	code := ResultError
	message := "request failed"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.TextCode != "" {
			code = ResultCode(richErr.TextCode)
		}
		if richErr.Message != "" {
			message = richErr.Message
		}
	}

	return Envelope{
		ResultCode: code,
		Message:    message,
		Error:      err.Error(),
	}
}

// ResultFrom is the recovery boundary between the token lifecycle and the
// HTTP layer: core methods return (value, error), transports return
// envelopes.
func ResultFrom(pair *TokenPair, err error) Envelope {
	if err != nil {
		return ErrorEnvelope(err)
	}
	return OKEnvelope(pair)
}

// StatusCode maps the envelope's result code to an HTTP status.
func (e Envelope) StatusCode() int {
	switch e.ResultCode {
	case ResultOK:
		return http.StatusOK
	case ResultValidationError:
		return http.StatusBadRequest
	case ResultInvalidToken, ResultExpiredToken, ResultTokenReuseDetected:
		return http.StatusUnauthorized
	case ResultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// OK reports whether the envelope carries a success.
func (e Envelope) OK() bool {
	return e.ResultCode == ResultOK
}
