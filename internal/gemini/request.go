package gemini

import (
	"encoding/json"
	"fmt"
)

// GenerationOptions is the per-pipeline generationConfig block. The zero
// value omits the block entirely.
type GenerationOptions struct {
	ResponseModalities []string
}

func (o GenerationOptions) empty() bool {
	return len(o.ResponseModalities) == 0
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// EncodeRequest wraps prompt into a single user turn.
func EncodeRequest(prompt string, opts GenerationOptions) ([]byte, error) {
	req := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	if !opts.empty() {
		modalities := make([]string, len(opts.ResponseModalities))
		copy(modalities, opts.ResponseModalities)
		req.GenerationConfig = &generationConfig{ResponseModalities: modalities}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return body, nil
}
