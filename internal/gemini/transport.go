package gemini

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
)

const contentTypeJSON = "application/json; charset=UTF-8"

var keyRedactor = regexp.MustCompile(`(key=)[^&"\s]+`)

// Response is whatever came back from one outbound call. Err is set only for
// transport-level faults; a non-2xx status is not an error here.
type Response struct {
	StatusCode int
	Body       []byte
	Err        error
}

type Transport struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewTransport(httpClient *http.Client, logger *slog.Logger) *Transport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transport{httpClient: httpClient, logger: logger}
}

func (t *Transport) Post(ctx context.Context, endpoint string, body []byte) Response {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{Err: redact("create request", err)}
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return Response{Err: redact("request", err)}
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{StatusCode: httpResp.StatusCode, Err: redact("read response", err)}
	}

	t.logger.Debug("gemini response", "status", httpResp.StatusCode, "bytes", len(rawBody))

	return Response{
		StatusCode: httpResp.StatusCode,
		Body:       rawBody,
	}
}

// redactedError keeps the original chain for errors.Is while never printing
// the credential carried in the endpoint's query string.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redact(op string, err error) error {
	return &redactedError{
		msg: op + ": " + redactKey(err.Error()),
		err: err,
	}
}

func redactKey(s string) string {
	return keyRedactor.ReplaceAllString(s, "$1[REDACTED]")
}
