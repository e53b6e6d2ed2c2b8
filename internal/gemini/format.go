package gemini

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	ImageDataURIPrefix = "data:image/png;base64,"

	interpretationGlyph = "🌙 "
	imageGlyph          = "🎨 "
)

// Formatter decorates results for display. Glyph prefixes text answers and
// every diagnostic of its pipeline.
type Formatter struct {
	Glyph string
}

func formatterFor(p Pipeline) Formatter {
	if p == PipelineImage {
		return Formatter{Glyph: imageGlyph}
	}
	return Formatter{Glyph: interpretationGlyph}
}

func (f Formatter) Format(r Result) string {
	switch r.Kind {
	case KindText:
		return f.Glyph + strings.TrimSpace(r.Value)
	case KindImage:
		return FormatImage(r.Value)
	default:
		return f.Glyph + Diagnostic(r.Failure)
	}
}

// FormatText decorates an interpretation answer.
func FormatText(text string) string {
	return interpretationGlyph + strings.TrimSpace(text)
}

// FormatImage turns a base64 PNG payload into a renderable data URI.
func FormatImage(payload string) string {
	return ImageDataURIPrefix + payload
}

// Diagnostic renders a failure for a human operator. Provider and parse
// failures carry the raw body verbatim.
func Diagnostic(f *Failure) string {
	if f == nil {
		return "예외 발생: 알 수 없는 오류"
	}
	switch f.Cause {
	case CauseNoResponse:
		return fmt.Sprintf("오류: 서버로부터 응답이 없습니다. (HTTP %d)", f.StatusCode)
	case CauseProviderError:
		return fmt.Sprintf("오류 (%d): %s", f.StatusCode, f.Body)
	case CauseParseFailure:
		if f.Malformed {
			return "응답 형식 오류: " + f.Body
		}
		return "응답 파싱 실패: " + f.Body
	default:
		msg := "알 수 없는 오류"
		if f.Err != nil {
			msg = redactKey(f.Err.Error())
		}
		return "예외 발생: " + msg
	}
}

// DecodeDataURI splits a data URI into its media type and decoded bytes. A
// bare base64 string is accepted as image/png.
func DecodeDataURI(value string) (string, []byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil, errors.New("empty data uri")
	}

	mimeType := "image/png"
	payload := value
	if strings.HasPrefix(value, "data:") {
		meta, data, ok := strings.Cut(value, ",")
		if !ok {
			return "", nil, errors.New("invalid data uri")
		}
		meta = strings.TrimPrefix(meta, "data:")
		if mt, _, _ := strings.Cut(meta, ";"); strings.TrimSpace(mt) != "" {
			mimeType = strings.TrimSpace(mt)
		}
		payload = data
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode base64: %w", err)
	}
	return mimeType, decoded, nil
}
