// Package elevenlabs implements the synthesis provider contract against
// the ElevenLabs text-to-speech REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicedesk/voicedesk-core/core/texttospeech"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModelID = "eleven_turbo_v2_5"
	defaultVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

type Client struct {
	apiKey  string
	baseURL string
	voiceID string
}

type ClientOption func(*Client)

// WithAPIKey overrides the ELEVENLABS_API_KEY environment lookup.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithDefaultVoice sets the voice used when a request carries none.
func WithDefaultVoice(voiceID string) ClientOption {
	return func(c *Client) { c.voiceID = voiceID }
}

func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{baseURL: defaultBaseURL, voiceID: defaultVoiceID}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("ELEVENLABS_API_KEY")
		if !ok {
			return nil, fmt.Errorf("elevenlabs api key not found")
		}
		client.apiKey = apiKey
	}

	return client, nil
}

type voiceSettingsBody struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type synthesisRequestBody struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	OutputFormat  string             `json:"output_format,omitempty"`
	VoiceSettings *voiceSettingsBody `json:"voice_settings,omitempty"`
}

// Synthesize renders text into one audio payload.
func (c *Client) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) (*texttospeech.Audio, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	options := texttospeech.SynthesisOptions{VoiceID: c.voiceID, ModelID: defaultModelID}
	for _, opt := range opts {
		opt(&options)
	}
	span.SetAttributes(
		attribute.String("tts.voice_id", options.VoiceID),
		attribute.Int("tts.text_length", len(text)),
	)

	body := synthesisRequestBody{
		Text:         text,
		ModelID:      options.ModelID,
		OutputFormat: options.OutputFormat,
	}
	if options.VoiceSettings != nil {
		body.VoiceSettings = &voiceSettingsBody{
			Stability:       options.VoiceSettings.Stability,
			SimilarityBoost: options.VoiceSettings.SimilarityBoost,
		}
	}

	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, options.VoiceID),
		bytes.NewBuffer(requestBodyBytes),
	)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	client := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("synthesis request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, recordError(span, fmt.Errorf("synthesis failed with status %d: %s", resp.StatusCode, detail))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("error reading synthesized audio: %w", err))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &texttospeech.Audio{Data: audio, ContentType: contentType}, nil
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
