package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "gemini-2.5-flash-image"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string

	// ImageModalities defaults to ["Image"]. Pass e.g. ["TEXT", "IMAGE"] to
	// let the model answer with mixed parts.
	ImageModalities []string

	InterpretationTemplate InterpretationTemplate
	ImageTemplate          ImageTemplate

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client runs the interpretation and image pipelines. It holds no per-call
// state and is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string

	interpretation pipeline
	image          pipeline

	interpretationTemplate InterpretationTemplate
	imageTemplate          ImageTemplate

	transport *Transport
	logger    *slog.Logger
}

type pipeline struct {
	name    Pipeline
	model   string
	options GenerationOptions
	kind    Kind
	extract func([]byte) (string, error)
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	modalities := opts.ImageModalities
	if len(modalities) == 0 {
		modalities = []string{"Image"}
	}

	interpretationTemplate := opts.InterpretationTemplate
	if interpretationTemplate == nil {
		interpretationTemplate = BuildInterpretationPrompt
	}
	imageTemplate := opts.ImageTemplate
	if imageTemplate == nil {
		imageTemplate = BuildImagePrompt
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		interpretation: pipeline{
			name:    PipelineInterpretation,
			model:   textModel,
			kind:    KindText,
			extract: ExtractText,
		},
		image: pipeline{
			name:    PipelineImage,
			model:   imageModel,
			options: GenerationOptions{ResponseModalities: modalities},
			kind:    KindImage,
			extract: ExtractImage,
		},
		interpretationTemplate: interpretationTemplate,
		imageTemplate:          imageTemplate,
		transport:              NewTransport(opts.HTTPClient, logger),
		logger:                 logger,
	}
}

// Interpret returns a displayable interpretation or diagnostic.
func (c *Client) Interpret(ctx context.Context, dreamText string) string {
	return c.InterpretResult(ctx, dreamText).String()
}

func (c *Client) InterpretResult(ctx context.Context, dreamText string) Result {
	return c.run(ctx, c.interpretation, c.interpretationTemplate(dreamText))
}

// GenerateImage returns a data URI or diagnostic.
func (c *Client) GenerateImage(ctx context.Context, dreamText, style string) string {
	return c.GenerateImageResult(ctx, dreamText, style).String()
}

func (c *Client) GenerateImageResult(ctx context.Context, dreamText, style string) Result {
	return c.run(ctx, c.image, c.imageTemplate(dreamText, style))
}

// Dream runs both pipelines concurrently.
func (c *Client) Dream(ctx context.Context, dreamText, style string) (interpretation, image Result) {
	var g errgroup.Group
	g.Go(func() error {
		interpretation = c.InterpretResult(ctx, dreamText)
		return nil
	})
	g.Go(func() error {
		image = c.GenerateImageResult(ctx, dreamText, style)
		return nil
	})
	_ = g.Wait()
	return interpretation, image
}

func (c *Client) run(ctx context.Context, p pipeline, prompt string) Result {
	body, err := EncodeRequest(prompt, p.options)
	if err != nil {
		return errorResult(p.name, &Failure{Cause: CauseTransportException, Err: err})
	}

	resp := c.transport.Post(ctx, c.endpoint(p.model), body)
	result := p.resolve(resp)

	if result.Kind == KindError {
		c.logger.Warn("gemini call failed",
			"pipeline", string(p.name),
			"model", p.model,
			"cause", result.Failure.Cause.String(),
			"status", resp.StatusCode,
			"err", result.Failure.Error(),
		)
	} else {
		c.logger.Info("gemini call ok", "pipeline", string(p.name), "model", p.model, "status", resp.StatusCode)
	}
	return result
}

func (p pipeline) resolve(resp Response) Result {
	if resp.Err != nil {
		return errorResult(p.name, &Failure{Cause: CauseTransportException, StatusCode: resp.StatusCode, Err: resp.Err})
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return errorResult(p.name, &Failure{Cause: CauseNoResponse, StatusCode: resp.StatusCode})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorResult(p.name, &Failure{Cause: CauseProviderError, StatusCode: resp.StatusCode, Body: string(resp.Body)})
	}

	value, err := p.extract(resp.Body)
	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Cause: CauseParseFailure, Body: string(resp.Body), Err: err}
		}
		failure.StatusCode = resp.StatusCode
		return errorResult(p.name, failure)
	}
	return Result{Pipeline: p.name, Kind: p.kind, Value: value}
}

func (c *Client) endpoint(model string) string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, c.apiVersion, url.PathEscape(model), url.QueryEscape(c.apiKey))
}
