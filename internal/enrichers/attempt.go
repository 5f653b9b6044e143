package enrichers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	apperrors "complaint-service/internal/common/errors"
	httpclient "complaint-service/internal/common/http"
	"complaint-service/internal/common/logging"
	"complaint-service/internal/common/utils"
)

// Outcomes recorded in the enrichment log event
const (
	OutcomeSucceeded       = "succeeded"
	OutcomeRetryable       = "retryable_error"
	OutcomeNetworkError    = "network_error"
	OutcomeTimeout         = "timeout"
	OutcomeTerminal        = "terminal_error"
	OutcomeUnexpected      = "unexpected_error"
	OutcomeExhausted       = "retries_exhausted"
	OutcomeCancelled       = "cancelled"
	OutcomeLabelOutsideSet = "label_outside_set"
)

// errCredentialUnavailable is retryable: the next attempt asks the cache again.
func errCredentialUnavailable() error {
	return apperrors.TransientError("credential unavailable", nil).WithCode("credential_unavailable")
}

// runAttempts drives call through backoff. It returns call's value on the
// first success, and false once a non-retryable error occurs, the attempts
// run out, or ctx is cancelled during a pause.
func runAttempts[T any](ctx context.Context, backoff utils.LinearBackoff, ev *logging.Event, call func(ctx context.Context) (T, error)) (T, bool) {
	var zero T

	for attempt := 1; attempt <= backoff.Attempts; attempt++ {
		result, err := safeCall(ctx, call)
		if err == nil {
			ev.Info(OutcomeSucceeded)
			return result, true
		}

		if !apperrors.IsRetryable(err) {
			if apperrors.IsType(err, apperrors.ErrTypeTerminal) {
				ev.Warn(OutcomeTerminal, err)
			} else {
				ev.Error(OutcomeUnexpected, err)
			}
			return zero, false
		}

		ev.Warn(outcomeFor(err), err)
		if !backoff.HasNext(attempt) {
			break
		}
		if err := backoff.Wait(ctx, attempt); err != nil {
			ev.Warn(OutcomeCancelled, err)
			return zero, false
		}
	}

	ev.Warn(OutcomeExhausted, fmt.Errorf("no usable response after %d attempts", backoff.Attempts))
	return zero, false
}

func safeCall[T any](ctx context.Context, call func(ctx context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.InternalError(fmt.Sprintf("panic during provider call: %v", r), nil)
		}
	}()
	return call(ctx)
}

func outcomeFor(err error) string {
	switch apperrors.GetType(err) {
	case apperrors.ErrTypeConnection:
		return OutcomeNetworkError
	case apperrors.ErrTypeTimeout:
		return OutcomeTimeout
	case apperrors.ErrTypeTerminal:
		return OutcomeTerminal
	case apperrors.ErrTypeTransient:
		return OutcomeRetryable
	default:
		return OutcomeUnexpected
	}
}

// statusError classifies a non-200 provider response
func statusError(resp *httpclient.Response) error {
	msg := fmt.Sprintf("provider returned status %d", resp.StatusCode)
	if detail := providerMessage(resp.Body); detail != "" {
		msg += ": " + detail
	}
	code := strconv.Itoa(resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError:
		return apperrors.TransientError(msg, nil).WithCode(code)
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return apperrors.TerminalError(msg, nil).WithCode(code)
	default:
		return apperrors.InternalError(msg, nil).WithCode(code)
	}
}

// providerMessage extracts {"message": ...} from an error body, falling
// back to a truncated copy of the raw body.
func providerMessage(body []byte) string {
	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Message != "" {
		return decoded.Message
	}
	return utils.Truncate(string(body), 200)
}
