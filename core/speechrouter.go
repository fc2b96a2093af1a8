package orchestration

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/voicedesk/voicedesk-core/core/texttospeech"
)

// audioSink receives playable audio chunks in the order they must be
// played. The router funnels both the embedded and the external speech
// path through a single sink so the two can never interleave.
type audioSink func(audio []byte, contentType string)

type speechJob struct {
	text    string
	version int64
}

// speechRouter decides which synthesis path produces audible output.
// Without an external synthesizer the gateway's embedded audio passes
// straight through; with one, embedded audio is suppressed and finalized
// agent text is synthesized out of band. A failure on the external path
// demotes the session to the embedded path for its remainder.
type speechRouter struct {
	synthesizer texttospeech.Synthesizer
	voice       string
	sink        audioSink
	onFallback  func(text string)

	// version stamps every queued utterance; bumping it invalidates all
	// audio that has not reached the sink yet.
	version  atomic.Int64
	fallback atomic.Bool

	mu       sync.Mutex
	queue    []speechJob
	draining bool
}

func newSpeechRouter(synthesizer texttospeech.Synthesizer, voice string, sink audioSink) *speechRouter {
	return &speechRouter{
		synthesizer: synthesizer,
		voice:       voice,
		sink:        sink,
	}
}

// usingExternal reports whether finalized agent text should be routed to
// the external synthesizer instead of playing the gateway's own audio.
func (r *speechRouter) usingExternal() bool {
	return r != nil && r.synthesizer != nil && !r.fallback.Load()
}

// deliverEmbedded forwards a gateway audio chunk to the sink, unless the
// external path owns playback or the chunk was queued before the last
// interruption.
func (r *speechRouter) deliverEmbedded(version int64, audio []byte, contentType string) {
	if r == nil || r.sink == nil || r.usingExternal() {
		return
	}
	if version != r.version.Load() {
		return
	}

	r.sink(audio, contentType)
}

// currentVersion returns the stamp that audio produced right now must
// carry to survive until playback.
func (r *speechRouter) currentVersion() int64 {
	if r == nil {
		return 0
	}

	return r.version.Load()
}

// enqueue schedules a finalized piece of agent text for external
// synthesis. Jobs are synthesized and played strictly in order.
func (r *speechRouter) enqueue(ctx context.Context, text string) {
	if r == nil || !r.usingExternal() || text == "" {
		return
	}

	r.mu.Lock()
	r.queue = append(r.queue, speechJob{text: text, version: r.version.Load()})
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	r.mu.Unlock()

	go r.drain(ctx)
}

func (r *speechRouter) drain(ctx context.Context) {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			r.mu.Unlock()
			return
		}
		job := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if job.version != r.version.Load() {
			continue
		}

		var opts []texttospeech.SynthesisOption
		if r.voice != "" {
			opts = append(opts, texttospeech.WithVoice(r.voice))
		}
		audio, err := r.synthesizer.Synthesize(ctx, job.text, opts...)
		if err != nil {
			logger.WarnContext(ctx, "External synthesis failed, falling back to embedded audio", "error", err)
			r.fallback.Store(true)
			r.mu.Lock()
			r.queue = nil
			r.draining = false
			r.mu.Unlock()
			if r.onFallback != nil {
				r.onFallback(job.text)
			}
			return
		}

		if job.version != r.version.Load() {
			continue
		}
		if r.sink != nil {
			r.sink(audio.Data, audio.ContentType)
		}
	}
}

// interrupt discards every queued and in-flight utterance. Audio stamped
// with an older version is dropped on arrival instead of played.
func (r *speechRouter) interrupt() {
	if r == nil {
		return
	}

	r.version.Add(1)
	r.flush()
}

func (r *speechRouter) flush() {
	r.mu.Lock()
	r.queue = nil
	r.mu.Unlock()
}
