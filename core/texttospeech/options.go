// Package texttospeech defines the contract for an external synthesis
// provider used on the alternate speech output path.
package texttospeech

import "context"

// Audio is one synthesized utterance.
type Audio struct {
	Data        []byte
	ContentType string
}

// VoiceSettings tune the synthesized voice.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
}

type SynthesisOptions struct {
	VoiceID       string
	ModelID       string
	OutputFormat  string
	VoiceSettings *VoiceSettings
}

type SynthesisOption func(*SynthesisOptions)

func WithVoice(voiceID string) SynthesisOption {
	return func(o *SynthesisOptions) { o.VoiceID = voiceID }
}

func WithModel(modelID string) SynthesisOption {
	return func(o *SynthesisOptions) { o.ModelID = modelID }
}

func WithOutputFormat(format string) SynthesisOption {
	return func(o *SynthesisOptions) { o.OutputFormat = format }
}

func WithVoiceSettings(settings VoiceSettings) SynthesisOption {
	return func(o *SynthesisOptions) { o.VoiceSettings = &settings }
}

// Synthesizer turns finalized text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts ...SynthesisOption) (*Audio, error)
}
