package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/seu-repo/alfa-voz/internal/domain"
	"github.com/seu-repo/alfa-voz/internal/observability/telemetry"
	"github.com/seu-repo/alfa-voz/internal/ports"
)

var (
	// ErrCaptureUnavailable means no transcript source exists; the pipeline cannot run.
	ErrCaptureUnavailable = errors.New("voice: no transcript source available")
	// ErrStopped is returned by Submit once Run has returned.
	ErrStopped = errors.New("voice: assistant stopped")
)

const defaultQueueSize = 32

type eventKind int

const (
	eventTranscript eventKind = iota
	eventTimer
	eventResolved
)

type event struct {
	kind       eventKind
	transcript domain.Transcript
	generation uint64
	resolution domain.Resolution
}

// Config holds the collaborators of an Assistant.
type Config struct {
	Machine     *ActivityMachine
	Local       *LocalClassifier
	Remote      ports.CommandClassifier
	Credentials ports.CredentialProvider
	Commands    ports.CommandSink
	Status      ports.StatusSink
	WakeWord    string
	QueueSize   int
}

// Assistant is the command resolution pipeline. All activity state is owned
// by the Run goroutine; transcripts, timer expiries and remote results reach
// it through a single event queue.
type Assistant struct {
	machine     *ActivityMachine
	local       *LocalClassifier
	remote      ports.CommandClassifier
	credentials ports.CredentialProvider
	commands    ports.CommandSink
	status      ports.StatusSink
	wakeWord    string
	log         *zap.Logger

	events   chan event
	done     chan struct{}
	running  atomic.Bool
	state    atomic.Value
	inflight sync.WaitGroup
	now      func() time.Time
}

func NewAssistant(cfg Config, log *zap.Logger) (*Assistant, error) {
	if cfg.Machine == nil {
		return nil, errors.New("voice: activity machine is nil")
	}
	if cfg.Local == nil {
		return nil, errors.New("voice: local classifier is nil")
	}
	if cfg.Remote == nil {
		return nil, errors.New("voice: remote classifier is nil")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("voice: credential provider is nil")
	}
	if cfg.Commands == nil {
		cfg.Commands = CommandSinks{}
	}
	if cfg.Status == nil {
		cfg.Status = StatusSinks{}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}

	a := &Assistant{
		machine:     cfg.Machine,
		local:       cfg.Local,
		remote:      cfg.Remote,
		credentials: cfg.Credentials,
		commands:    cfg.Commands,
		status:      cfg.Status,
		wakeWord:    cfg.WakeWord,
		log:         log,
		events:      make(chan event, cfg.QueueSize),
		done:        make(chan struct{}),
		now:         time.Now,
	}
	a.state.Store(cfg.Machine.State())

	return a, nil
}

// State is a snapshot of the activity state, safe to call from any goroutine.
func (a *Assistant) State() domain.ActivityState {
	return a.state.Load().(domain.ActivityState)
}

// Submit queues a recognizer event for resolution.
func (a *Assistant) Submit(ctx context.Context, t domain.Transcript) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.ReceivedAt.IsZero() {
		t.ReceivedAt = a.now()
	}

	select {
	case <-a.done:
		return ErrStopped
	default:
	}

	select {
	case a.events <- event{kind: eventTranscript, transcript: t}:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve starts every transcript source and runs the pipeline until ctx is
// done. Without any source the pipeline cannot work at all.
func (a *Assistant) Serve(ctx context.Context, sources ...ports.TranscriptSource) error {
	if len(sources) == 0 {
		a.publish(ctx, domain.StatusUnsupported, domain.ModeUnsupported,
			"No hay una fuente de transcripción disponible.", "")
		return ErrCaptureUnavailable
	}

	for _, src := range sources {
		go func(src ports.TranscriptSource) {
			a.log.Info("Starting transcript source", zap.String("source", src.Name()))
			if err := src.Listen(ctx, a); err != nil && ctx.Err() == nil {
				a.log.Error("Transcript source stopped", zap.String("source", src.Name()), zap.Error(err))
				a.publish(ctx, domain.StatusSourceError, domain.ModeError,
					fmt.Sprintf("Error STT: %v", err), "")
			}
		}(src)
	}

	return a.Run(ctx)
}

// Run processes events until ctx is done. It must be called once.
func (a *Assistant) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("voice: assistant already running")
	}

	a.machine.Start(a.timerFired)
	a.syncState()
	a.publish(ctx, domain.StatusListening, domain.ModeActive, "Escuchando órdenes…", "")

	defer func() {
		a.machine.Stop()
		close(a.done)
		a.inflight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.events:
			switch ev.kind {
			case eventTranscript:
				a.handleTranscript(ctx, ev.transcript)
			case eventTimer:
				a.handleTimer(ctx, ev.generation)
			case eventResolved:
				a.handleResolved(ctx, ev.resolution)
			}
		}
	}
}

func (a *Assistant) timerFired(generation uint64) {
	select {
	case a.events <- event{kind: eventTimer, generation: generation}:
	case <-a.done:
	}
}

func (a *Assistant) handleTranscript(ctx context.Context, t domain.Transcript) {
	raw, ok := t.Latest()
	if !ok {
		telemetry.VoiceUtterancesTotal.WithLabelValues("ignored").Inc()
		return
	}

	utt := domain.Utterance{
		ID:         t.ID,
		Raw:        raw,
		Canonical:  Normalize(raw),
		ReceivedAt: t.ReceivedAt,
	}

	a.log.Debug("Utterance received",
		zap.String("utterance_id", utt.ID),
		zap.String("source", t.Source),
		zap.String("canonical", utt.Canonical),
	)

	outcome := a.machine.Observe(utt.Canonical)
	telemetry.VoiceUtterancesTotal.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case OutcomeDiscarded:
		a.publish(ctx, domain.StatusDiscarded, "",
			fmt.Sprintf("Suspendido. Di %q para despertar.", a.wakeWord), utt.Raw)
		return
	case OutcomeWoke:
		a.syncState()
		a.publish(ctx, domain.StatusWoke, domain.ModeActive, "Despierto. Escuchando órdenes…", utt.Raw)
		return
	case OutcomeKeepAlive:
		a.publish(ctx, domain.StatusKeepAlive, "", "Wake word detectada (activo).", utt.Raw)
		return
	}

	if rule, ok := a.local.Match(utt.Canonical); ok {
		a.log.Debug("Local rule matched", zap.String("rule", rule.Name))
		a.emit(ctx, domain.Resolution{
			UtteranceID: utt.ID,
			Transcript:  utt.Raw,
			Label:       rule.Label,
			Path:        domain.PathLocal,
			Latency:     a.now().Sub(utt.ReceivedAt),
		})
		a.publish(ctx, domain.StatusRecognizedLocal, "", "Orden reconocida (local).", utt.Raw)
		return
	}

	a.publish(ctx, domain.StatusProcessingRemote, "", "Procesando con IA…", utt.Raw)

	a.inflight.Add(1)
	go a.resolveRemote(ctx, utt)
}

// resolveRemote runs off the event loop so timer and transcript events keep
// flowing while the network call is pending.
func (a *Assistant) resolveRemote(ctx context.Context, utt domain.Utterance) {
	defer a.inflight.Done()

	ctx, span := telemetry.StartSpan(ctx, "voice.resolve_remote")
	defer span.End()

	credential := a.credentials.Credential(ctx)
	verdict := a.remote.Classify(ctx, utt.Raw, credential)

	span.SetAttributes(
		attribute.String("voice.label", verdict.Label.String()),
		attribute.String("voice.failure", string(verdict.Failure)),
	)

	res := domain.Resolution{
		UtteranceID: utt.ID,
		Transcript:  utt.Raw,
		Label:       verdict.Label,
		Path:        domain.PathRemote,
		Failure:     verdict.Failure,
		Latency:     a.now().Sub(utt.ReceivedAt),
	}

	select {
	case a.events <- event{kind: eventResolved, resolution: res}:
	case <-a.done:
	}
}

func (a *Assistant) handleResolved(ctx context.Context, res domain.Resolution) {
	if res.Failure != domain.FailureNone {
		telemetry.RemoteFailuresTotal.WithLabelValues(string(res.Failure)).Inc()
	}

	a.emit(ctx, res)

	switch {
	case res.Failure == domain.FailureNoCredential:
		a.publish(ctx, domain.StatusNoCredential, domain.ModeNoCredential,
			"No hay API Key disponible (la fuente de credenciales falló o no respondió).", res.Transcript)
	case res.Failure == domain.FailureTransport:
		a.publish(ctx, domain.StatusTransportError, "",
			"No se pudo contactar al clasificador. No se reconoció una orden válida.", res.Transcript)
	case res.Label.IsAction():
		a.publish(ctx, domain.StatusRecognizedRemote, "", "Orden reconocida.", res.Transcript)
	default:
		a.publish(ctx, domain.StatusUnrecognized, "", "No se reconoció una orden válida.", res.Transcript)
	}
}

func (a *Assistant) handleTimer(ctx context.Context, generation uint64) {
	if !a.machine.Expire(generation) {
		return
	}

	a.syncState()
	a.log.Info("Suspended after inactivity")
	a.publish(ctx, domain.StatusSuspended, domain.ModeSuspended,
		fmt.Sprintf("Suspendido por inactividad. Di %q para despertar.", a.wakeWord), "")
}

// emit is the last gate before the consumer: nothing outside the closed
// vocabulary leaves the pipeline.
func (a *Assistant) emit(ctx context.Context, res domain.Resolution) {
	if !res.Label.IsValid() {
		a.log.Error("Dropping label outside the vocabulary", zap.String("label", res.Label.String()))
		res.Label = domain.LabelUnrecognized
	}
	res.ResolvedAt = a.now()

	telemetry.VoiceCommandsTotal.WithLabelValues(res.Label.String(), string(res.Path)).Inc()
	telemetry.VoiceLatency.WithLabelValues(string(res.Path)).Observe(res.Latency.Seconds())

	if err := a.commands.Emit(ctx, res); err != nil {
		a.log.Warn("Failed to deliver command", zap.String("label", res.Label.String()), zap.Error(err))
	}
}

func (a *Assistant) publish(ctx context.Context, status domain.Status, mode domain.Mode, message, transcript string) {
	a.status.Publish(ctx, domain.StatusEvent{
		Status:     status,
		Mode:       mode,
		Message:    message,
		Transcript: transcript,
		State:      a.State(),
		At:         a.now(),
	})
}

func (a *Assistant) syncState() {
	state := a.machine.State()
	a.state.Store(state)

	if state == domain.StateActive {
		telemetry.ActivityState.Set(1)
	} else {
		telemetry.ActivityState.Set(0)
	}
}
