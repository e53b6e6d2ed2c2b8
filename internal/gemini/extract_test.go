package gemini

import (
	"errors"
	"testing"
)

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "escaped newline",
			body: `{"candidates":[{"content":{"parts":[{"text": "hello\nworld"}]}}]}`,
			want: "hello\nworld",
		},
		{
			name: "ampersand escape",
			body: `{"candidates":[{"content":{"parts":[{"text":"길몽 \u0026 태몽"}]}}]}`,
			want: "길몽 & 태몽",
		},
		{
			name: "trims whitespace",
			body: `{"candidates":[{"content":{"parts":[{"text":"  \n 흉몽입니다.\n\n"}]}}]}`,
			want: "흉몽입니다.",
		},
		{
			name: "first occurrence wins",
			body: `{"candidates":[{"content":{"parts":[{"text":"first"},{"text":"second"}]}},{"content":{"parts":[{"text":"third"}]}}]}`,
			want: "first",
		},
		{
			name: "nested before later sibling",
			body: `{"a":{"b":{"text":"deep"}},"text":"shallow"}`,
			want: "deep",
		},
		{
			name: "skips non-string text members",
			body: `{"meta":{"text":42},"parts":[{"text":"answer"}]}`,
			want: "answer",
		},
		{
			name: "quote inside value",
			body: `{"parts":[{"text":"he said \"hi\""}]}`,
			want: `he said "hi"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tc.body))
			if err != nil {
				t.Fatalf("ExtractText failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("text mismatch: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestExtractTextMissingFieldCarriesBody(t *testing.T) {
	body := `{"candidates":[{"finishReason":"SAFETY"}]}`

	_, err := ExtractText([]byte(body))
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if failure.Cause != CauseParseFailure || failure.Malformed {
		t.Fatalf("failure mismatch: %#v", failure)
	}
	if failure.Body != body {
		t.Fatalf("failure should carry the full body, got %q", failure.Body)
	}
}

func TestExtractTextMalformedBody(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"cut off`

	_, err := ExtractText([]byte(body))
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if !failure.Malformed || failure.Body != body {
		t.Fatalf("failure mismatch: %#v", failure)
	}
}

func TestExtractImage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "camel case",
			body: `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"QUJD"}}]}}]}`,
			want: "QUJD",
		},
		{
			name: "snake case",
			body: `{"candidates":[{"content":{"parts":[{"inline_data":{"mime_type":"image/png","data":"REVG"}}]}}]}`,
			want: "REVG",
		},
		{
			name: "snake case preferred even when later",
			body: `{"parts":[{"inlineData":{"data":"CAMEL"}},{"inline_data":{"data":"SNAKE"}}]}`,
			want: "SNAKE",
		},
		{
			name: "text part before image part",
			body: `{"parts":[{"text":"여기 있어요"},{"inlineData":{"mimeType":"image/png","data":"SU1H"}}]}`,
			want: "SU1H",
		},
		{
			name: "skips empty payload",
			body: `{"parts":[{"inlineData":{"data":""}},{"inlineData":{"data":"TkVYVA=="}}]}`,
			want: "TkVYVA==",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractImage([]byte(tc.body))
			if err != nil {
				t.Fatalf("ExtractImage failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("payload mismatch: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestExtractImageMissingCarriesBody(t *testing.T) {
	body := `{"candidates":[{"content":{"parts":[{"text":"이미지를 만들 수 없습니다"}]}}]}`

	_, err := ExtractImage([]byte(body))
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if failure.Cause != CauseParseFailure || failure.Body != body {
		t.Fatalf("failure mismatch: %#v", failure)
	}
}

func TestFormatImageRoundTrip(t *testing.T) {
	payload, err := ExtractImage(bodyWithBase64("QUJD"))
	if err != nil {
		t.Fatalf("ExtractImage failed: %v", err)
	}
	if got := FormatImage(payload); got != "data:image/png;base64,QUJD" {
		t.Fatalf("data uri mismatch: %q", got)
	}
}

func bodyWithBase64(data string) []byte {
	return []byte(`{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"image/png","data":"` + data + `"}}]},"finishReason":"STOP"}]}`)
}
