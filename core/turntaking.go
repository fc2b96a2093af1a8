package orchestration

import "sync/atomic"

// turnGate tracks whose turn it is to speak. It gates scripted replies
// while the caller holds the floor and decides when a transcript fragment
// should interrupt in-flight agent speech.
type turnGate struct {
	agentSpeaking  atomic.Bool
	waitingForUser atomic.Bool
}

func (g *turnGate) markAgentSpeaking(speaking bool) {
	g.agentSpeaking.Store(speaking)
}

func (g *turnGate) isAgentSpeaking() bool {
	return g.agentSpeaking.Load()
}

func (g *turnGate) markWaitingForUser(waiting bool) {
	g.waitingForUser.Store(waiting)
}

func (g *turnGate) isWaitingForUser() bool {
	return g.waitingForUser.Load()
}

// shouldInterrupt reports whether an incoming transcript fragment must cut
// off the agent. Only meaningful fragments interrupt; filler and
// transcription noise play out over the agent without consequence.
func (g *turnGate) shouldInterrupt(fragment string) bool {
	return g.agentSpeaking.Load() && meaningfulUtterance(fragment)
}

// allowReply reports whether a scripted reply may be spoken right now.
// One-shot nudges bypass the gate so a stalled conversation can still be
// unstuck while the orchestrator waits on the caller.
func (g *turnGate) allowReply(bypass bool) bool {
	if bypass {
		return true
	}

	return !g.waitingForUser.Load()
}
