package styles

import "strings"

type Style struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Name is what the image prompt receives; keys are for commands and URLs.
var catalog = []Style{
	{Key: "watercolor", Name: "수채화"},
	{Key: "illustration", Name: "일러스트"},
	{Key: "anime", Name: "애니"},
	{Key: "oil", Name: "유화"},
	{Key: "pencil", Name: "연필 스케치"},
	{Key: "ink", Name: "수묵화"},
	{Key: "pastel", Name: "파스텔"},
	{Key: "pixel", Name: "픽셀 아트"},
	{Key: "surreal", Name: "초현실주의"},
}

const DefaultKey = "watercolor"

func All() []Style {
	out := make([]Style, len(catalog))
	copy(out, catalog)
	return out
}

func Lookup(key string) (Style, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, s := range catalog {
		if s.Key == key {
			return s, true
		}
	}
	return Style{}, false
}

// Resolve maps a catalog key or display name to the display name. Anything
// else is a free-form style and passes through trimmed, including "".
func Resolve(value string) string {
	value = strings.TrimSpace(value)
	if s, ok := Lookup(value); ok {
		return s.Name
	}
	return value
}

func Default() Style {
	s, _ := Lookup(DefaultKey)
	return s
}
