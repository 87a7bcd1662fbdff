package llmclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/andybalholm/brotli"

	"infergate/internal/core"
)

// TransportError is returned when a provider exchange produced no usable response.
type TransportError struct {
	Reason core.Reason
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify maps a failed round trip onto a stable reason. The attempt context
// decides first: its own deadline means timed_out, its cancellation means canceled.
func classify(ctx context.Context, err error) *TransportError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &TransportError{Reason: core.ReasonTimedOut, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return &TransportError{Reason: core.ReasonCanceled, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &TransportError{Reason: core.ReasonTimedOut, Err: err}
	}

	// Refused connections, DNS failures, resets and dial errors all mean the
	// provider could not be reached.
	return &TransportError{Reason: core.ReasonUnreachable, Err: err}
}

// decodeBody undoes the Content-Encoding requested in buildRequest.
func decodeBody(body []byte, contentEncoding string) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))
	if len(body) == 0 || encoding == "" || encoding == "identity" {
		return body, nil
	}

	var reader io.Reader
	switch encoding {
	case "br":
		reader = brotli.NewReader(bytes.NewReader(body))
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		return body, nil
	}

	decoded, err := io.ReadAll(io.LimitReader(reader, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s body: %w", encoding, err)
	}
	return decoded, nil
}
