// Package openairealtime implements the speech gateway contract over the
// OpenAI Realtime websocket API.
package openairealtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/codes"

	"github.com/voicedesk/voicedesk-core/core/gateway"
)

const (
	defaultBaseURL = "wss://api.openai.com/v1/realtime"
	defaultModel   = "gpt-4o-realtime-preview"
)

var _ gateway.Client = (*Client)(nil)

type Client struct {
	apiKey  string
	model   string
	baseURL string

	mu     sync.Mutex
	conn   *websocket.Conn
	opened bool
	// pending holds commands issued before the transport opened, replayed
	// in order on open.
	pending [][]byte

	callbacks gateway.Callbacks
	closeOnce sync.Once
	closed    chan struct{}
}

type ClientOption func(*Client)

// WithAPIKey overrides the OPENAI_API_KEY environment lookup.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithBaseURL points the client at a different gateway endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		model:   defaultModel,
		baseURL: defaultBaseURL,
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Connect dials the gateway, sends the initial session configuration and
// starts the read loop. Commands queued before Connect are flushed in
// order right after the configuration command.
func (c *Client) Connect(ctx context.Context, config gateway.SessionConfig, callbacks gateway.Callbacks) error {
	ctx, span := tracer.Start(ctx, "connect realtime gateway")
	defer span.End()

	apiKey := c.apiKey
	if apiKey == "" {
		var ok bool
		if apiKey, ok = os.LookupEnv("OPENAI_API_KEY"); !ok {
			return fmt.Errorf("openai api key not found")
		}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.baseURL+"?model="+c.model, headers)
	if err != nil {
		err = fmt.Errorf("failed to dial realtime gateway: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.callbacks = callbacks

	configure, err := json.Marshal(sessionUpdateCommand(config))
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to encode session configuration: %w", err)
	}
	replay := append([][]byte{configure}, c.pending...)
	c.pending = nil
	c.opened = true

	for _, command := range replay {
		if err := conn.WriteMessage(websocket.TextMessage, command); err != nil {
			c.mu.Unlock()
			err = fmt.Errorf("failed to replay buffered command: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	c.mu.Unlock()

	go c.readLoop(conn)

	return nil
}

func (c *Client) UpdateSession(ctx context.Context, config gateway.SessionConfig) error {
	return c.send(ctx, sessionUpdateCommand(config))
}

func (c *Client) CreateResponse(ctx context.Context, opts gateway.ResponseOptions) error {
	response := map[string]any{}
	if opts.Instructions != "" {
		response["instructions"] = opts.Instructions
	}
	if opts.TextOnly {
		response["modalities"] = []string{"text"}
	}
	return c.send(ctx, map[string]any{"type": "response.create", "response": response})
}

func (c *Client) CancelResponse(ctx context.Context) error {
	return c.send(ctx, map[string]any{"type": "response.cancel"})
}

func (c *Client) ClearInputAudio(ctx context.Context) error {
	return c.send(ctx, map[string]any{"type": "input_audio_buffer.clear"})
}

func (c *Client) CreateUserItem(ctx context.Context, text string) error {
	return c.send(ctx, map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "user",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	})
}

func (c *Client) SendToolResult(ctx context.Context, callID, output string) error {
	return c.send(ctx, map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
}

func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.opened = false
		c.pending = nil
		c.mu.Unlock()

		if conn == nil {
			return
		}
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		err = conn.Close()
	})
	return err
}

// send marshals and writes one command, buffering it if the transport has
// not opened yet.
func (c *Client) send(ctx context.Context, command map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isClosed() {
		return fmt.Errorf("gateway connection is closed")
	}
	if !c.opened {
		c.pending = append(c.pending, payload)
		return nil
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				if c.callbacks.OnClosed != nil {
					c.callbacks.OnClosed()
				}
				return
			}
			if c.callbacks.OnTransportError != nil {
				c.callbacks.OnTransportError(fmt.Errorf("gateway stream failed: %w", err))
			}
			return
		}

		c.dispatch(message)
	}
}

func sessionUpdateCommand(config gateway.SessionConfig) map[string]any {
	modalities := []string{"text"}
	if config.EmitAudio {
		modalities = append(modalities, "audio")
	}

	session := map[string]any{
		"instructions": config.Instructions,
		"modalities":   modalities,
	}
	if config.Voice != "" {
		session["voice"] = config.Voice
	}

	transcription := map[string]any{"model": "whisper-1"}
	if config.Language != "" {
		transcription["language"] = config.Language
	}
	session["input_audio_transcription"] = transcription

	if vad := config.VoiceActivity; vad != nil {
		session["turn_detection"] = map[string]any{
			"type":                "server_vad",
			"threshold":           vad.Threshold,
			"silence_duration_ms": vad.SilenceMillis,
			"prefix_padding_ms":   vad.PrefixPaddingMillis,
		}
	}

	if len(config.Tools) > 0 {
		tools := make([]map[string]any, 0, len(config.Tools))
		for _, tool := range config.Tools {
			tools = append(tools, map[string]any{
				"type":        "function",
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  json.RawMessage(tool.Parameters),
			})
		}
		session["tools"] = tools
	}

	return map[string]any{"type": "session.update", "session": session}
}
