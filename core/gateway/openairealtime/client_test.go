package openairealtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicedesk/voicedesk-core/core/gateway"
)

type recordingServer struct {
	server *httptest.Server

	mu       sync.Mutex
	received []map[string]any
}

func newRecordingServer(t *testing.T) *recordingServer {
	t.Helper()

	recorder := &recordingServer{}
	upgrader := websocket.Upgrader{}
	recorder.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var decoded map[string]any
			if err := json.Unmarshal(message, &decoded); err != nil {
				t.Errorf("server received undecodable command: %v", err)
				return
			}
			recorder.mu.Lock()
			recorder.received = append(recorder.received, decoded)
			recorder.mu.Unlock()
		}
	}))
	t.Cleanup(recorder.server.Close)

	return recorder
}

func (r *recordingServer) wsURL() string {
	return "ws" + strings.TrimPrefix(r.server.URL, "http")
}

func (r *recordingServer) commandTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.received))
	for _, command := range r.received {
		commandType, _ := command["type"].(string)
		types = append(types, commandType)
	}
	return types
}

func waitForCommands(t *testing.T, recorder *recordingServer, count int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recorder.mu.Lock()
		received := len(recorder.received)
		recorder.mu.Unlock()
		if received >= count {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d commands, got %v", count, recorder.commandTypes())
}

func TestConnectSendsSessionConfigurationFirst(t *testing.T) {
	recorder := newRecordingServer(t)
	client := NewClient(WithAPIKey("test-key"), WithBaseURL(recorder.wsURL()))
	defer client.Close(context.Background())

	err := client.Connect(context.Background(), gateway.SessionConfig{Instructions: "be helpful"}, gateway.Callbacks{})
	if err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	waitForCommands(t, recorder, 1)
	if types := recorder.commandTypes(); types[0] != "session.update" {
		t.Fatalf("expected session.update first, got %v", types)
	}
}

func TestCommandsBeforeConnectAreReplayedInOrder(t *testing.T) {
	recorder := newRecordingServer(t)
	client := NewClient(WithAPIKey("test-key"), WithBaseURL(recorder.wsURL()))
	defer client.Close(context.Background())

	ctx := context.Background()
	if err := client.CreateUserItem(ctx, "hello"); err != nil {
		t.Fatalf("unexpected error buffering user item: %v", err)
	}
	if err := client.CreateResponse(ctx, gateway.ResponseOptions{}); err != nil {
		t.Fatalf("unexpected error buffering response: %v", err)
	}

	if err := client.Connect(ctx, gateway.SessionConfig{}, gateway.Callbacks{}); err != nil {
		t.Fatalf("unexpected connect error: %v", err)
	}

	waitForCommands(t, recorder, 3)
	expected := []string{"session.update", "conversation.item.create", "response.create"}
	got := recorder.commandTypes()
	for i, commandType := range expected {
		if got[i] != commandType {
			t.Fatalf("expected command order %v, got %v", expected, got)
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	client := NewClient(WithAPIKey("test-key"))

	if err := client.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if err := client.CreateResponse(context.Background(), gateway.ResponseOptions{}); err == nil {
		t.Fatal("expected an error sending on a closed client")
	}
}

func TestSessionUpdateCommandShape(t *testing.T) {
	command := sessionUpdateCommand(gateway.SessionConfig{
		Instructions: "assist with scheduling",
		Voice:        "alloy",
		Language:     "en",
		EmitAudio:    true,
		VoiceActivity: &gateway.VoiceActivityConfig{
			Threshold:     0.6,
			SilenceMillis: 700,
		},
		Tools: []gateway.ToolDeclaration{
			{Name: "checkAvailability", Description: "check a time window", Parameters: json.RawMessage(`{"type":"object"}`)},
		},
	})

	if command["type"] != "session.update" {
		t.Fatalf("expected session.update, got %v", command["type"])
	}

	session := command["session"].(map[string]any)
	if session["instructions"] != "assist with scheduling" {
		t.Fatalf("unexpected instructions %v", session["instructions"])
	}
	modalities := session["modalities"].([]string)
	if len(modalities) != 2 || modalities[1] != "audio" {
		t.Fatalf("expected audio modality to be enabled, got %v", modalities)
	}
	turnDetection := session["turn_detection"].(map[string]any)
	if turnDetection["type"] != "server_vad" {
		t.Fatalf("expected server_vad turn detection, got %v", turnDetection["type"])
	}
	tools := session["tools"].([]map[string]any)
	if len(tools) != 1 || tools[0]["name"] != "checkAvailability" {
		t.Fatalf("unexpected tools payload %v", tools)
	}
}

func TestSessionUpdateWithoutAudioIsTextOnly(t *testing.T) {
	command := sessionUpdateCommand(gateway.SessionConfig{})

	session := command["session"].(map[string]any)
	modalities := session["modalities"].([]string)
	if len(modalities) != 1 || modalities[0] != "text" {
		t.Fatalf("expected text-only modalities, got %v", modalities)
	}
}

type callbackRecorder struct {
	mu sync.Mutex

	speechStarts   int
	userDeltas     []string
	userFinals     []string
	announced      []string
	argumentDeltas []string
	argumentsDone  []string
	audioBytes     int
}

func (r *callbackRecorder) callbacks() gateway.Callbacks {
	return gateway.Callbacks{
		OnSpeechStarted: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.speechStarts++
		},
		OnUserTranscriptDelta: func(_, delta string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.userDeltas = append(r.userDeltas, delta)
		},
		OnUserTranscriptFinal: func(_, transcript string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.userFinals = append(r.userFinals, transcript)
		},
		OnToolCallAnnounced: func(callID, name string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.announced = append(r.announced, callID+"/"+name)
		},
		OnToolCallArgumentsDelta: func(_, delta string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.argumentDeltas = append(r.argumentDeltas, delta)
		},
		OnToolCallArgumentsDone: func(_, name, arguments string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.argumentsDone = append(r.argumentsDone, name+"/"+arguments)
		},
		OnAudioDelta: func(_ string, audio []byte) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.audioBytes += len(audio)
		},
	}
}

func TestDispatchRoutesKnownEventTypes(t *testing.T) {
	recorder := &callbackRecorder{}
	client := NewClient(WithAPIKey("test-key"))
	client.callbacks = recorder.callbacks()

	client.dispatch([]byte(`{"type":"input_audio_buffer.speech_started"}`))
	client.dispatch([]byte(`{"type":"conversation.item.input_audio_transcription.delta","item_id":"item-1","delta":"is ten"}`))
	client.dispatch([]byte(`{"type":"conversation.item.input_audio_transcription.completed","item_id":"item-1","transcript":"is ten am free"}`))
	client.dispatch([]byte(`{"type":"response.output_item.added","item":{"type":"function_call","call_id":"call-1","name":"checkAvailability"}}`))
	client.dispatch([]byte(`{"type":"response.function_call_arguments.delta","call_id":"call-1","delta":"{\"startTime\""}`))
	client.dispatch([]byte(`{"type":"response.function_call_arguments.done","call_id":"call-1","name":"checkAvailability","arguments":"{}"}`))
	client.dispatch([]byte(`{"type":"response.audio.delta","response_id":"resp-1","delta":"AAEC"}`))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.speechStarts != 1 {
		t.Fatalf("expected one speech start, got %d", recorder.speechStarts)
	}
	if len(recorder.userDeltas) != 1 || recorder.userDeltas[0] != "is ten" {
		t.Fatalf("unexpected user deltas %v", recorder.userDeltas)
	}
	if len(recorder.userFinals) != 1 || recorder.userFinals[0] != "is ten am free" {
		t.Fatalf("unexpected user finals %v", recorder.userFinals)
	}
	if len(recorder.announced) != 1 || recorder.announced[0] != "call-1/checkAvailability" {
		t.Fatalf("unexpected announcements %v", recorder.announced)
	}
	if len(recorder.argumentDeltas) != 1 {
		t.Fatalf("expected one argument delta, got %v", recorder.argumentDeltas)
	}
	if len(recorder.argumentsDone) != 1 || recorder.argumentsDone[0] != "checkAvailability/{}" {
		t.Fatalf("unexpected arguments done %v", recorder.argumentsDone)
	}
	if recorder.audioBytes != 3 {
		t.Fatalf("expected 3 decoded audio bytes, got %d", recorder.audioBytes)
	}
}

func TestDispatchIgnoresUnknownAndNonFunctionItems(t *testing.T) {
	recorder := &callbackRecorder{}
	client := NewClient(WithAPIKey("test-key"))
	client.callbacks = recorder.callbacks()

	client.dispatch([]byte(`{"type":"some.future.event","data":"whatever"}`))
	client.dispatch([]byte(`{"type":"response.output_item.added","item":{"type":"message","id":"item-2"}}`))
	client.dispatch([]byte(`not even json`))

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.announced) != 0 {
		t.Fatalf("expected no announcements, got %v", recorder.announced)
	}
}
