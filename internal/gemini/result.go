package gemini

import (
	"fmt"
	"strings"
)

type Pipeline string

const (
	PipelineInterpretation Pipeline = "interpretation"
	PipelineImage          Pipeline = "image"
)

type Kind int

const (
	KindError Kind = iota
	KindText
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	default:
		return "error"
	}
}

// Cause tells the four failure modes apart.
type Cause int

const (
	CauseNoResponse Cause = iota + 1
	CauseProviderError
	CauseParseFailure
	CauseTransportException
)

func (c Cause) String() string {
	switch c {
	case CauseNoResponse:
		return "no_response"
	case CauseProviderError:
		return "provider_error"
	case CauseParseFailure:
		return "parse_failure"
	case CauseTransportException:
		return "transport_exception"
	default:
		return "unknown"
	}
}

// Failure is the error carried by an Error result. Body is the full raw
// provider body whenever one was received.
type Failure struct {
	Cause      Cause
	StatusCode int
	Body       string
	// Malformed marks a ParseFailure whose body was not well-formed JSON.
	Malformed bool
	Err       error
}

func (f *Failure) Error() string {
	switch f.Cause {
	case CauseNoResponse:
		return fmt.Sprintf("gemini: no response body (HTTP %d)", f.StatusCode)
	case CauseProviderError:
		return fmt.Sprintf("gemini: HTTP %d: %s", f.StatusCode, strings.TrimSpace(f.Body))
	case CauseParseFailure:
		if f.Malformed {
			return "gemini: malformed response body"
		}
		return "gemini: expected field not found in response"
	case CauseTransportException:
		if f.Err != nil {
			return "gemini: " + f.Err.Error()
		}
		return "gemini: transport failure"
	default:
		return "gemini: unknown failure"
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Result is produced exactly once per pipeline call. Value holds the
// extracted text or base64 payload; Failure is set only for KindError.
type Result struct {
	Pipeline Pipeline
	Kind     Kind
	Value    string
	Failure  *Failure
}

func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

// String renders the result the way callers display it.
func (r Result) String() string {
	return formatterFor(r.Pipeline).Format(r)
}

func errorResult(p Pipeline, f *Failure) Result {
	return Result{Pipeline: p, Kind: KindError, Failure: f}
}
