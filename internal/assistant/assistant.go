// Package assistant routes utterances: wake-word handling, built-in
// command dispatch, language-model fallback, and the fixed reply when
// neither applies. A single consumer goroutine drains one utterance
// queue so spoken and typed input never interleave mid-utterance.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"crux/internal/audit"
	"crux/internal/command"
	"crux/internal/config"
	"crux/internal/event"
	"crux/internal/llm"

	"github.com/sirupsen/logrus"
)

const (
	gptApology    = "Sorry, I couldn't reach GPT right now."
	notUnderstood = "I don't understand. Please try again."
)

// Origin records where an utterance came from. Wake-word stripping only
// applies to spoken input; typed text is taken verbatim.
type Origin int

const (
	OriginSpoken Origin = iota
	OriginTyped
)

type utterance struct {
	text   string
	origin Origin
}

// Voice is the synthesis side of the assistant.
type Voice interface {
	Speak(text string)
}

// Ears is the capture side; Start/Stop are idempotent.
type Ears interface {
	Start() error
	Stop()
}

// Observer receives routing milestones, for metrics.
type Observer interface {
	UtteranceHeard(origin Origin)
	CommandHandled()
	QuerySent()
	QueryFailed()
	ResponseSpoken()
}

type nopObserver struct{}

func (nopObserver) UtteranceHeard(Origin) {}
func (nopObserver) CommandHandled()       {}
func (nopObserver) QuerySent()            {}
func (nopObserver) QueryFailed()          {}
func (nopObserver) ResponseSpoken()       {}

// Assistant owns the utterance pipeline. All routing runs on the Run
// goroutine; Submit* and listening control are safe from any goroutine.
type Assistant struct {
	cfg      *config.Config
	logger   *logrus.Logger
	sink     event.Sink
	audit    *audit.Log
	commands *command.Registry
	llm      *llm.Client
	voice    Voice
	ears     Ears
	obs      Observer

	mu        sync.Mutex
	listening bool

	queue chan utterance
}

// Option tweaks assistant construction.
type Option func(*Assistant)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(a *Assistant) { a.obs = o }
}

func New(cfg *config.Config, logger *logrus.Logger, sink event.Sink, auditLog *audit.Log,
	commands *command.Registry, llmClient *llm.Client, voice Voice, ears Ears, opts ...Option) *Assistant {
	a := &Assistant{
		cfg:      cfg,
		logger:   logger,
		sink:     sink,
		audit:    auditLog,
		commands: commands,
		llm:      llmClient,
		voice:    voice,
		ears:     ears,
		obs:      nopObserver{},
		queue:    make(chan utterance, 16),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetEars attaches the microphone listener after construction. The
// listener is built around SubmitSpoken, so wiring is two-phase.
func (a *Assistant) SetEars(e Ears) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ears = e
}

// Run drains the utterance queue until ctx is canceled. Exactly one Run
// per assistant; it is the only goroutine that routes utterances.
func (a *Assistant) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.StopListening()
			return
		case u := <-a.queue:
			a.handle(ctx, u)
		}
	}
}

// SubmitSpoken enqueues recognized microphone text.
func (a *Assistant) SubmitSpoken(text string) { a.submit(text, OriginSpoken) }

// SubmitTyped enqueues text the user typed through the control channel.
func (a *Assistant) SubmitTyped(text string) { a.submit(text, OriginTyped) }

func (a *Assistant) submit(text string, origin Origin) {
	select {
	case a.queue <- utterance{text: text, origin: origin}:
	default:
		a.logger.Warn("utterance queue full, dropping input")
	}
}

// StartListening turns the microphone loop on. Repeat calls are no-ops.
func (a *Assistant) StartListening() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listening {
		return nil
	}
	if a.ears == nil {
		return fmt.Errorf("no microphone listener attached")
	}
	if err := a.ears.Start(); err != nil {
		return err
	}
	a.listening = true
	a.sink.Emit(event.Status("Listening..."))
	return nil
}

// StopListening turns the microphone loop off. Repeat calls are no-ops.
func (a *Assistant) StopListening() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.listening {
		return
	}
	a.ears.Stop()
	a.listening = false
	a.sink.Emit(event.Status("Mic muted"))
}

// Listening reports whether the microphone loop is on.
func (a *Assistant) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// handle routes one utterance end to end: wake-word strip, built-in
// commands, language-model fallback, fixed reply. Every surviving
// utterance and every response is audited and emitted as a transcript.
func (a *Assistant) handle(ctx context.Context, u utterance) {
	text := strings.ToLower(strings.TrimSpace(u.text))
	if text == "" {
		return
	}
	if u.origin == OriginSpoken {
		text = a.stripWakeWord(text)
		if text == "" {
			return
		}
	}
	a.obs.UtteranceHeard(u.origin)

	a.sink.Emit(event.Transcript(event.RoleUser, text))
	a.logAudit(event.RoleUser, text)

	response := a.respond(ctx, text)

	a.voice.Speak(response)
	a.obs.ResponseSpoken()
	a.sink.Emit(event.Transcript(event.RoleAssistant, response))
	a.logAudit(event.RoleAssistant, response)
}

// stripWakeWord removes the first occurrence of the wake word. Text
// without the wake word passes through unchanged; text that is nothing
// but the wake word becomes empty and the caller discards it.
func (a *Assistant) stripWakeWord(text string) string {
	wake := strings.ToLower(a.cfg.App.WakeWord)
	if wake == "" || !strings.Contains(text, wake) {
		return text
	}
	a.sink.Emit(event.Log(fmt.Sprintf("Heard wake word: %s", text)))
	return strings.TrimSpace(strings.Replace(text, wake, "", 1))
}

func (a *Assistant) respond(ctx context.Context, text string) string {
	if response, handled := a.commands.Handle(text); handled {
		a.obs.CommandHandled()
		return response
	}
	if a.llm != nil {
		a.obs.QuerySent()
		response, err := a.llm.Query(ctx, text)
		if err != nil {
			a.obs.QueryFailed()
			a.logger.Errorf("gpt query: %v", err)
			return gptApology
		}
		if response != "" {
			return response
		}
	}
	return notUnderstood
}

func (a *Assistant) logAudit(role event.Role, text string) {
	if err := a.audit.Append(role, text); err != nil {
		a.logger.Warnf("audit append: %v", err)
	}
}
