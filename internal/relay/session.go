// Package relay bridges the four network legs of one live phone call:
// telephony media stream, speech-to-text, streaming LLM, and text-to-speech.
// It owns barge-in handling, generation versioning, tool dispatch, and the
// call-timeline recorder.
package relay

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/audio"
	"github.com/MKA06/luron-voice/internal/events"
	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/providers/llm"
	"github.com/MKA06/luron-voice/internal/providers/stt"
	"github.com/MKA06/luron-voice/internal/providers/tts"
	"github.com/MKA06/luron-voice/internal/recording"
	mongorepo "github.com/MKA06/luron-voice/internal/repositories/mongo"
	"github.com/MKA06/luron-voice/internal/telephony"
	"github.com/MKA06/luron-voice/internal/tools"
)

const (
	// toolDrainTimeout bounds how long teardown waits for in-flight tools.
	toolDrainTimeout = 5 * time.Second
	// endCallGrace lets the goodbye finish playing out on the caller's
	// device before the socket closes.
	endCallGrace = 2 * time.Second
)

// TelephonyConn is the telephony leg as the session sees it.
// *telephony.Conn satisfies it; tests substitute fakes.
type TelephonyConn interface {
	ReadFrame() (*telephony.Frame, error)
	SendAudio(audio []byte) error
	SendClear() error
	SetStreamSid(sid string)
	StreamSid() string
	Close() error
}

// TranscriptTurn is one finalized turn of the conversation, kept for the
// post-call transcript.
type TranscriptTurn struct {
	Role     string // user|assistant|tool
	Text     string
	ToolName string
}

// Outcome is what a finished session hands to post-call processing.
type Outcome struct {
	Call        *models.Call
	Agent       *models.Agent
	Turns       []TranscriptTurn
	Recorder    *recording.Recorder
	StartedAt   time.Time
	DurationSec float64
	EndedByTool bool
}

// Deps are the session's collaborators, wired once per call.
type Deps struct {
	Log       *logrus.Entry
	STT       stt.Dialer
	TTS       tts.Dialer
	LLM       llm.Provider
	Tools     *tools.Registry
	Publisher *events.Publisher
	Turns     mongorepo.TurnRepository // nil disables archiving
}

type ttsUnit struct {
	gen       int64
	text      string
	endOfTurn bool
}

// Session runs one call. Created on the telephony start event, destroyed
// after teardown. The generation counter and cancel flag are atomics because
// the pump goroutines mutate them in parallel.
type Session struct {
	log  *logrus.Entry
	deps Deps

	call  *models.Call
	agent *models.Agent

	conn      TelephonyConn
	sttStream stt.Stream
	ttsStream tts.Stream

	recorder *recording.Recorder

	generation atomic.Int64
	// audioGeneration tags the audio the TTS leg is currently producing.
	audioGeneration   atomic.Int64
	cancelRequested   atomic.Bool
	assistantSpeaking atomic.Bool
	endCallRequested  atomic.Bool

	startedAt time.Time

	convMu       sync.Mutex
	history      []llm.Message // what the model sees
	turns        []TranscriptTurn
	turnSeq      int64
	cancelTurnFn context.CancelFunc

	dispatcher *tools.Dispatcher
	toolDefs   []llm.ToolDefinition

	ttsQueue chan ttsUnit
	flushTTS chan struct{}
	// turnCh requests a new LLM turn; the triggering message (user
	// utterance or tool result) is already in the history by send time.
	turnCh chan struct{}

	done     chan struct{}
	teardown sync.Once
	wg       sync.WaitGroup
}

func NewSession(call *models.Call, agent *models.Agent, conn TelephonyConn, deps Deps) *Session {
	s := &Session{
		log:      deps.Log.WithFields(logrus.Fields{"call_sid": call.TwilioCallSid, "agent_id": agent.ID}),
		deps:     deps,
		call:     call,
		agent:    agent,
		conn:     conn,
		recorder: recording.NewRecorder(audio.SampleRate),
		ttsQueue: make(chan ttsUnit, 64),
		flushTTS: make(chan struct{}, 1),
		turnCh:   make(chan struct{}, 8),
		done:     make(chan struct{}),
	}

	s.history = append(s.history, llm.Message{Role: "system", Content: agent.Prompt})
	if agent.WelcomeMessage != "" {
		// The welcome was spoken by the intake TwiML; seed it so the model
		// knows the conversation already opened.
		s.history = append(s.history, llm.Message{Role: "assistant", Content: agent.WelcomeMessage})
		s.turns = append(s.turns, TranscriptTurn{Role: "assistant", Text: agent.WelcomeMessage})
	}

	defs := deps.Tools.Definitions(agent.EnabledTools)
	s.toolDefs = make([]llm.ToolDefinition, 0, len(defs))
	for _, d := range defs {
		s.toolDefs = append(s.toolDefs, llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  d.Parameters,
		})
	}

	s.dispatcher = tools.NewDispatcher(deps.Tools, s.onToolResult, s.log)
	return s
}

// Run drives the session until the call ends, then returns the outcome for
// post-call processing. It blocks for the call's lifetime.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	var err error
	s.sttStream, err = s.deps.STT.Dial(ctx, "")
	if err != nil {
		return nil, err
	}
	s.ttsStream, err = s.deps.TTS.Dial(ctx, s.agent.Voice)
	if err != nil {
		s.sttStream.Close()
		return nil, err
	}

	s.startedAt = time.Now()
	s.dispatcher.Start(ctx)
	s.deps.Publisher.Publish(ctx, s.call.ID, events.StatusStarted, "")

	s.wg.Add(3)
	go s.sttLoop(ctx)
	go s.llmLoop(ctx)
	go s.ttsSendLoop()
	s.wg.Add(1)
	go s.ttsReceiveLoop(ctx)

	s.telephonyLoop()

	s.shutdown()
	s.wg.Wait()

	endedByTool := s.endCallRequested.Load()
	duration := time.Since(s.startedAt).Seconds()

	s.convMu.Lock()
	turns := make([]TranscriptTurn, len(s.turns))
	copy(turns, s.turns)
	s.convMu.Unlock()

	s.deps.Publisher.Publish(ctx, s.call.ID, events.StatusEnded, "")
	s.log.WithField("duration_sec", duration).Info("session finished")

	return &Outcome{
		Call:        s.call,
		Agent:       s.agent,
		Turns:       turns,
		Recorder:    s.recorder,
		StartedAt:   s.startedAt,
		DurationSec: duration,
		EndedByTool: endedByTool,
	}, nil
}

// now returns the call-relative timestamp in seconds.
func (s *Session) now() float64 {
	return time.Since(s.startedAt).Seconds()
}

// telephonyLoop is the main inbound pump: media frames go to STT and the
// recorder; stop (or a read error) ends the session.
func (s *Session) telephonyLoop() {
	for {
		frame, err := s.conn.ReadFrame()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.log.WithError(err).Info("telephony leg closed")
			}
			return
		}

		switch frame.Event {
		case telephony.EventStart:
			if frame.Start != nil {
				s.conn.SetStreamSid(frame.Start.StreamSid)
				s.log.WithField("stream_sid", frame.Start.StreamSid).Info("media stream started")
			}
		case telephony.EventMedia:
			if frame.Media == nil {
				continue
			}
			payload, derr := frame.Media.Audio()
			if derr != nil {
				// One malformed frame must not kill the stream.
				s.log.WithError(derr).Warn("dropping malformed media frame")
				continue
			}
			s.recorder.AppendCallerAudio(payload, s.now())
			if serr := s.sttStream.Send(payload); serr != nil {
				s.log.WithError(serr).Warn("stt leg write failed")
				return
			}
		case telephony.EventStop:
			s.log.Info("media stream stopped")
			return
		}
	}
}

// sttLoop turns recognition events into utterances and barge-in decisions.
func (s *Session) sttLoop(ctx context.Context) {
	defer s.wg.Done()

	var buffer TranscriptBuffer
	userSpeaking := false

	for res := range s.sttStream.Results() {
		if res.Err != nil {
			select {
			case <-s.done:
			default:
				s.log.WithError(res.Err).Warn("stt leg failed")
				s.initiateTeardown()
			}
			return
		}

		switch {
		case res.UtteranceEnd:
			text := buffer.FlushAny()
			if text != "" {
				s.dispatchUtterance(text)
			}
			if userSpeaking {
				s.recorder.CallerStoppedSpeaking(s.now())
			}
			userSpeaking = false

		case strings.TrimSpace(res.Transcript) != "":
			if !userSpeaking {
				userSpeaking = true
				s.recorder.CallerStartedSpeaking(s.now())
				s.deps.Publisher.Publish(ctx, s.call.ID, events.StatusUserSpeaking, "")
				if s.assistantSpeaking.Load() {
					s.bargeIn()
					buffer.Reset()
				}
			}
			if !res.IsFinal {
				buffer.AddInterim(res.Transcript)
				continue
			}
			buffer.AddFinal(res.Transcript)
			if res.SpeechFinal {
				text := buffer.FlushFinal()
				if text != "" {
					s.dispatchUtterance(text)
				}
				s.recorder.CallerStoppedSpeaking(s.now())
				userSpeaking = false
			}
		}
	}
}

// bargeIn runs the interruption sequence: bump the generation so every
// in-flight unit of the old turn is stale, request cancellation, clear the
// provider-side playback buffer, and drop queued output. The recorder's
// assistant segment was already force-closed by CallerStartedSpeaking.
func (s *Session) bargeIn() {
	gen := s.generation.Add(1)
	s.cancelRequested.Store(true)
	s.log.WithField("generation", gen).Info("barge-in detected")

	s.convMu.Lock()
	if s.cancelTurnFn != nil {
		s.cancelTurnFn()
	}
	s.convMu.Unlock()

	if err := s.conn.SendClear(); err != nil {
		s.log.WithError(err).Warn("failed to clear playback buffer")
	}

	select {
	case s.flushTTS <- struct{}{}:
	default:
	}

	s.assistantSpeaking.Store(false)

	// Drop everything queued for the old generation.
	for {
		select {
		case <-s.ttsQueue:
		default:
			return
		}
	}
}

// dispatchUtterance records the finalized user utterance and requests a new
// LLM turn.
func (s *Session) dispatchUtterance(text string) {
	s.log.WithField("transcript", text).Info("utterance finalized")
	s.appendTurn("user", text, "")
	select {
	case s.turnCh <- struct{}{}:
	case <-s.done:
	}
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// splitSentences returns the complete sentences in buf and the unfinished
// remainder.
func splitSentences(buf string) (complete []string, rest string) {
	locs := sentenceEnd.FindAllStringIndex(buf, -1)
	start := 0
	for _, loc := range locs {
		if sentence := strings.TrimSpace(buf[start:loc[1]]); sentence != "" {
			complete = append(complete, sentence)
		}
		start = loc[1]
	}
	return complete, buf[start:]
}

// llmLoop runs one model turn per request, streaming sentences to the TTS
// queue tagged with the generation captured at turn start.
func (s *Session) llmLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.turnCh:
		case <-s.done:
			return
		}

		// Cleared here, at the start of the next turn, not at barge-in:
		// stale units from the interrupted turn still fail the generation
		// check even after the flag resets.
		s.cancelRequested.Store(false)
		myGen := s.generation.Load()

		turnCtx, cancel := context.WithCancel(ctx)
		s.convMu.Lock()
		s.cancelTurnFn = cancel
		messages := make([]llm.Message, len(s.history))
		copy(messages, s.history)
		s.convMu.Unlock()

		s.runTurn(turnCtx, myGen, messages)

		cancel()
		s.convMu.Lock()
		s.cancelTurnFn = nil
		s.convMu.Unlock()
	}
}

func (s *Session) runTurn(ctx context.Context, myGen int64, messages []llm.Message) {
	log := s.log.WithField("generation", myGen)

	var sentenceBuf, fullResponse strings.Builder
	var toolCalls []llm.ToolCall
	cancelled := false

	for ev := range s.deps.LLM.StreamTurn(ctx, messages, s.toolDefs) {
		if ev.Err != nil {
			if ctx.Err() == nil {
				log.WithError(ev.Err).Error("llm turn failed")
			}
			cancelled = true
			break
		}
		if s.cancelRequested.Load() {
			cancelled = true
			break
		}

		if ev.TextDelta != "" {
			sentenceBuf.WriteString(ev.TextDelta)
			fullResponse.WriteString(ev.TextDelta)

			complete, rest := splitSentences(sentenceBuf.String())
			if len(complete) > 0 {
				for _, sentence := range complete {
					s.queueTTS(ttsUnit{gen: myGen, text: sentence})
				}
				sentenceBuf.Reset()
				sentenceBuf.WriteString(rest)
			}
		}

		if ev.Done {
			toolCalls = ev.ToolCalls
		}
	}

	if cancelled {
		log.Info("llm turn abandoned")
		return
	}

	if rest := strings.TrimSpace(sentenceBuf.String()); rest != "" {
		s.queueTTS(ttsUnit{gen: myGen, text: rest})
	}
	// End-of-turn marker: the TTS sender flushes buffered synthesis.
	s.queueTTS(ttsUnit{gen: myGen, endOfTurn: true})

	if text := strings.TrimSpace(fullResponse.String()); text != "" {
		s.appendHistory(llm.Message{Role: "assistant", Content: text})
		s.appendTurn("assistant", text, "")
	}

	// All of a turn's calls are enqueued before any is awaited; the worker
	// drains them FIFO and each completion triggers its own follow-up turn.
	for _, tc := range toolCalls {
		job := &tools.Job{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: s.injectCallContext(json.RawMessage(tc.Arguments)),
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if !s.dispatcher.Enqueue(job) {
			log.WithField("tool", tc.Name).Warn("dispatcher closed, dropping tool call")
		}
	}
}

// injectCallContext merges the agent owner and caller number into the model's
// arguments. Tools are registered process-wide, so per-call identity travels
// in the arguments rather than in tool state, and the model never gets to
// choose a user_id.
func (s *Session) injectCallContext(raw json.RawMessage) json.RawMessage {
	args := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	args["user_id"] = s.agent.UserID
	args["caller_number"] = s.call.FromNumber
	out, err := json.Marshal(args)
	if err != nil {
		return raw
	}
	return out
}

func (s *Session) queueTTS(u ttsUnit) {
	select {
	case s.ttsQueue <- u:
	case <-s.done:
	}
}

// onToolResult runs on the dispatcher worker. Every completed job, success
// or failure, appends exactly one function result and triggers exactly one
// follow-up turn so the caller is never left waiting in silence.
func (s *Session) onToolResult(job *tools.Job) {
	ctx := context.Background()

	s.appendHistory(llm.Message{Role: "function", Name: job.Name, Content: string(job.Result)})
	s.appendTurn("tool", string(job.Result), job.Name)
	s.deps.Publisher.Publish(ctx, s.call.ID, events.StatusTool, job.Name)

	if job.Name == tools.EndCallName && job.Status == tools.StatusDone {
		s.endCallRequested.Store(true)
	}

	select {
	case s.turnCh <- struct{}{}:
	case <-s.done:
	}
}

// ttsSendLoop feeds queued sentences to the TTS leg, dropping stale and
// cancelled units. Flush signals take priority over queued text.
func (s *Session) ttsSendLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.flushTTS:
			if err := s.ttsStream.Flush(); err != nil {
				s.log.WithError(err).Warn("tts flush failed")
			}
			continue
		default:
		}

		select {
		case <-s.flushTTS:
			if err := s.ttsStream.Flush(); err != nil {
				s.log.WithError(err).Warn("tts flush failed")
			}
		case u := <-s.ttsQueue:
			if u.gen < s.generation.Load() {
				continue
			}
			if u.endOfTurn {
				if err := s.ttsStream.Flush(); err != nil {
					s.log.WithError(err).Warn("tts flush failed")
				}
				continue
			}
			if s.cancelRequested.Load() {
				continue
			}
			s.audioGeneration.Store(u.gen)
			if err := s.ttsStream.SendText(u.text); err != nil {
				s.log.WithError(err).Warn("tts leg write failed")
				s.initiateTeardown()
				return
			}
		case <-s.done:
			return
		}
	}
}

// ttsReceiveLoop forwards synthesized audio to the caller, paced so the
// provider-side playback buffer stays shallow enough for clear to work.
func (s *Session) ttsReceiveLoop(ctx context.Context) {
	defer s.wg.Done()

	for chunk := range s.ttsStream.Chunks() {
		if chunk.Err != nil {
			select {
			case <-s.done:
			default:
				s.log.WithError(chunk.Err).Warn("tts leg failed")
				s.initiateTeardown()
			}
			return
		}

		if chunk.Final {
			if s.assistantSpeaking.Swap(false) {
				s.recorder.AssistantStoppedSpeaking(s.now())
			}
			if s.endCallRequested.Load() {
				s.log.Info("goodbye played, hanging up")
				time.Sleep(endCallGrace)
				s.initiateTeardown()
				return
			}
			continue
		}

		if len(chunk.Audio) == 0 {
			continue
		}
		if s.audioGeneration.Load() < s.generation.Load() {
			continue
		}
		if s.cancelRequested.Load() {
			continue
		}

		if !s.assistantSpeaking.Swap(true) {
			s.recorder.AssistantStartedSpeaking(s.now())
			s.deps.Publisher.Publish(ctx, s.call.ID, events.StatusAssistantSpeaking, "")
		}
		s.recorder.AppendAssistantAudio(chunk.Audio, s.now())

		if err := s.conn.SendAudio(chunk.Audio); err != nil {
			s.log.WithError(err).Warn("telephony write failed")
			s.initiateTeardown()
			return
		}

		// Pacing: sleep ~70% of the chunk's duration, clamped, so audio
		// arrives roughly in real time instead of flooding the buffer.
		durationMs := float64(len(chunk.Audio)) / float64(audio.SampleRate) * 1000
		pacing := time.Duration(durationMs*0.7) * time.Millisecond
		if pacing < 5*time.Millisecond {
			pacing = 5 * time.Millisecond
		}
		if pacing > 100*time.Millisecond {
			pacing = 100 * time.Millisecond
		}
		time.Sleep(pacing)
	}
}

// initiateTeardown closes the telephony leg, which unblocks telephonyLoop
// and lets Run finish through the single shutdown path.
func (s *Session) initiateTeardown() {
	s.teardownLegs()
}

// shutdown is the single idempotent teardown path.
func (s *Session) shutdown() {
	s.teardownLegs()
	s.dispatcher.Close(toolDrainTimeout)
}

func (s *Session) teardownLegs() {
	s.teardown.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.log.WithError(err).Debug("telephony close")
		}
		if s.sttStream != nil {
			_ = s.sttStream.Close()
		}
		if s.ttsStream != nil {
			_ = s.ttsStream.Close()
		}
		s.convMu.Lock()
		if s.cancelTurnFn != nil {
			s.cancelTurnFn()
		}
		s.convMu.Unlock()
	})
}

func (s *Session) appendHistory(msg llm.Message) {
	s.convMu.Lock()
	s.history = append(s.history, msg)
	s.convMu.Unlock()
}

// appendTurn records a finalized turn for the transcript and archives it to
// Mongo fail-soft.
func (s *Session) appendTurn(role, text, toolName string) {
	s.convMu.Lock()
	if role == "user" {
		s.history = append(s.history, llm.Message{Role: "user", Content: text})
	}
	s.turns = append(s.turns, TranscriptTurn{Role: role, Text: text, ToolName: toolName})
	s.turnSeq++
	seq := s.turnSeq
	s.convMu.Unlock()

	if s.deps.Turns == nil {
		return
	}
	insertCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.deps.Turns.Insert(insertCtx, &models.Turn{
		CallID:   s.call.ID,
		Seq:      seq,
		Role:     role,
		Text:     text,
		ToolName: toolName,
	})
	if err != nil {
		s.log.WithError(err).Debug("turn archive insert failed")
	}
}
