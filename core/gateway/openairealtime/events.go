package openairealtime

import (
	"encoding/base64"
	"encoding/json"
)

// serverEvent is the wire envelope for every gateway event. The type tag is
// an open string; fields are populated per type and zero otherwise.
type serverEvent struct {
	Type       string `json:"type"`
	ItemID     string `json:"item_id"`
	ResponseID string `json:"response_id"`
	CallID     string `json:"call_id"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Name       string `json:"name"`
	Arguments  string `json:"arguments"`
	Text       string `json:"text"`

	Item     *itemPayload     `json:"item"`
	Response *responsePayload `json:"response"`
	Error    *errorPayload    `json:"error"`
}

type itemPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Name   string `json:"name"`
}

type responsePayload struct {
	ID string `json:"id"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// dispatch decodes one wire message and routes it to the callback set.
// Unknown event types are ignored on purpose so new provider events fail
// safe.
func (c *Client) dispatch(message []byte) {
	var event serverEvent
	if err := json.Unmarshal(message, &event); err != nil {
		logger.Warn("dropping undecodable gateway event", "error", err)
		return
	}

	callbacks := c.callbacks

	switch event.Type {
	case "session.created":
		if callbacks.OnSessionReady != nil {
			callbacks.OnSessionReady()
		}
	case "input_audio_buffer.speech_started":
		if callbacks.OnSpeechStarted != nil {
			callbacks.OnSpeechStarted()
		}
	case "input_audio_buffer.speech_stopped":
		if callbacks.OnSpeechStopped != nil {
			callbacks.OnSpeechStopped()
		}
	case "conversation.item.input_audio_transcription.delta":
		if callbacks.OnUserTranscriptDelta != nil {
			callbacks.OnUserTranscriptDelta(event.ItemID, event.Delta)
		}
	case "conversation.item.input_audio_transcription.completed":
		if callbacks.OnUserTranscriptFinal != nil {
			callbacks.OnUserTranscriptFinal(event.ItemID, event.Transcript)
		}
	case "response.audio_transcript.delta", "response.text.delta":
		if callbacks.OnAgentTranscriptDelta != nil {
			callbacks.OnAgentTranscriptDelta(event.Delta)
		}
	case "response.audio_transcript.done":
		if callbacks.OnAgentTranscriptFinal != nil {
			callbacks.OnAgentTranscriptFinal(event.Transcript)
		}
	case "response.text.done":
		if callbacks.OnAgentTranscriptFinal != nil {
			callbacks.OnAgentTranscriptFinal(event.Text)
		}
	case "response.audio.delta":
		if callbacks.OnAudioDelta == nil {
			return
		}
		audio, err := base64.StdEncoding.DecodeString(event.Delta)
		if err != nil {
			logger.Warn("dropping undecodable audio delta", "error", err)
			return
		}
		callbacks.OnAudioDelta(event.ResponseID, audio)
	case "response.created":
		if callbacks.OnResponseStarted != nil && event.Response != nil {
			callbacks.OnResponseStarted(event.Response.ID)
		}
	case "response.done":
		if callbacks.OnResponseDone != nil && event.Response != nil {
			callbacks.OnResponseDone(event.Response.ID)
		}
	case "response.output_item.added":
		if event.Item == nil || event.Item.Type != "function_call" {
			return
		}
		if callbacks.OnToolCallAnnounced != nil {
			callbacks.OnToolCallAnnounced(event.Item.CallID, event.Item.Name)
		}
	case "response.function_call_arguments.delta":
		if callbacks.OnToolCallArgumentsDelta != nil {
			callbacks.OnToolCallArgumentsDelta(event.CallID, event.Delta)
		}
	case "response.function_call_arguments.done":
		if callbacks.OnToolCallArgumentsDone != nil {
			callbacks.OnToolCallArgumentsDone(event.CallID, event.Name, event.Arguments)
		}
	case "error":
		// Gateway error events are not transport failures; the stream
		// keeps going.
		if event.Error != nil {
			logger.Warn("gateway reported an error event",
				"error_type", event.Error.Type,
				"error_code", event.Error.Code,
				"error_message", event.Error.Message,
			)
		}
	default:
		// Unknown event types are expected as the provider evolves.
	}
}
