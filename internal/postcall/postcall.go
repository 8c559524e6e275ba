// Package postcall turns a finished session into its durable artifacts:
// recording upload, assembled transcript, intent and disposition, usage
// accounting. Every step is fail-soft; a degraded artifact never blocks the
// rest.
package postcall

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/billing"
	"github.com/MKA06/luron-voice/internal/models"
	"github.com/MKA06/luron-voice/internal/providers/llm"
	"github.com/MKA06/luron-voice/internal/providers/stt"
	"github.com/MKA06/luron-voice/internal/relay"
	mongorepo "github.com/MKA06/luron-voice/internal/repositories/mongo"
	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/services"
	"github.com/MKA06/luron-voice/internal/storage"
	"github.com/MKA06/luron-voice/internal/utils"
)

// freeTierCapSec is the monthly call allowance for free profiles.
const freeTierCapSec = 600

const (
	intentSystemPrompt = "You are a concise assistant. Summarize the entire phone call in a very short phrase (<= 8 words). Return only the summary."

	dispositionSystemPrompt = "You classify call outcome. If both the user and the assistant spoke at least once (a back-and-forth), output exactly: success. Otherwise output exactly: failed. Return only one word: success or failed."
)

type Processor struct {
	log *logrus.Entry

	calls    services.CallService
	profiles pgrepo.ProfileRepository
	turns    mongorepo.TurnRepository // transcript fallback, may be nil

	analyzer    llm.Analyzer         // may be nil
	transcriber stt.BatchTranscriber // may be nil
	uploader    storage.Uploader     // may be nil
	usage       billing.UsagePoster  // may be nil
}

func NewProcessor(
	calls services.CallService,
	profiles pgrepo.ProfileRepository,
	turns mongorepo.TurnRepository,
	analyzer llm.Analyzer,
	transcriber stt.BatchTranscriber,
	uploader storage.Uploader,
	usage billing.UsagePoster,
	log *logrus.Entry,
) *Processor {
	return &Processor{
		log:         log,
		calls:       calls,
		profiles:    profiles,
		turns:       turns,
		analyzer:    analyzer,
		transcriber: transcriber,
		uploader:    uploader,
		usage:       usage,
	}
}

// Process finalizes one call. Called once, after the session returns.
func (p *Processor) Process(ctx context.Context, out *relay.Outcome) {
	log := p.log.WithField("call_sid", out.Call.TwilioCallSid)

	recordingURL, recordingDuration := p.saveRecording(ctx, out, log)
	transcript := p.assembleTranscript(ctx, out, log)
	intent := p.deriveIntent(ctx, transcript, log)
	disposition := p.deriveDisposition(ctx, transcript, log)

	call := out.Call
	call.CallStatus = "answered"
	call.Transcript = transcript
	call.Intent = intent
	call.Disposition = disposition
	call.RecordingURL = recordingURL
	call.RecordingDuration = recordingDuration
	call.DurationSec = int64(math.Round(out.DurationSec))

	if err := p.calls.Finalize(ctx, call); err != nil {
		log.WithError(err).Error("failed to finalize call record")
	}

	p.accountUsage(ctx, out, log)
}

func (p *Processor) saveRecording(ctx context.Context, out *relay.Outcome, log *logrus.Entry) (string, float64) {
	if p.uploader == nil {
		return "", 0
	}
	url, duration, err := out.Recorder.SaveRecording(ctx, p.uploader, out.Agent.ID, out.Call.TwilioCallSid, out.DurationSec)
	if err != nil {
		// Degrade to an empty URL; the transcript and analysis still run.
		log.WithError(err).Error("recording upload failed")
		return "", duration
	}
	if url == "" {
		log.Info("no audio captured, skipping recording")
	}
	return url, duration
}

// assembleTranscript renders the conversation as "User:"/"Assistant:" lines.
// Falls back to the Mongo turn archive when the in-memory list is empty, and
// to batch transcription when the caller spoke but recognition produced no
// text.
func (p *Processor) assembleTranscript(ctx context.Context, out *relay.Outcome, log *logrus.Entry) string {
	turns := out.Turns
	if len(turns) == 0 && p.turns != nil {
		archived, err := p.turns.ListByCall(ctx, out.Call.ID, 0)
		if err != nil {
			log.WithError(err).Warn("turn archive lookup failed")
		}
		for _, t := range archived {
			turns = append(turns, relay.TranscriptTurn{Role: t.Role, Text: t.Text, ToolName: t.ToolName})
		}
	}

	var lines []string
	sawUser := false
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		switch t.Role {
		case "user":
			sawUser = true
			lines = append(lines, "User: "+text)
		case "assistant":
			lines = append(lines, "Assistant: "+text)
		}
	}

	if !sawUser && p.transcriber != nil {
		if raw := out.Recorder.CallerAudio(); len(raw) > 0 {
			text, err := p.transcriber.Transcribe(ctx, raw, "")
			if err != nil {
				log.WithError(err).Warn("fallback transcription failed")
			} else if text != "" {
				lines = append(lines, "User: "+text)
			}
		}
	}

	return strings.Join(lines, "\n")
}

func (p *Processor) deriveIntent(ctx context.Context, transcript string, log *logrus.Entry) string {
	if p.analyzer == nil || transcript == "" {
		return ""
	}
	intent, err := p.analyzer.Complete(ctx, intentSystemPrompt, transcript)
	if err != nil {
		log.WithError(err).Warn("intent generation failed")
		return ""
	}
	return strings.TrimSpace(intent)
}

func (p *Processor) deriveDisposition(ctx context.Context, transcript string, log *logrus.Entry) string {
	heuristic := func() string {
		if strings.Contains(transcript, "User:") && strings.Contains(transcript, "Assistant:") {
			return models.DispositionSuccess
		}
		return models.DispositionFailed
	}

	if p.analyzer == nil {
		return heuristic()
	}
	raw, err := p.analyzer.Complete(ctx, dispositionSystemPrompt, transcript)
	if err != nil {
		log.WithError(err).Warn("disposition classification failed")
		return heuristic()
	}
	disposition := strings.ToLower(strings.TrimSpace(raw))
	if disposition != models.DispositionSuccess && disposition != models.DispositionFailed {
		return heuristic()
	}
	return disposition
}

// accountUsage charges the call against the owning profile: monthly seconds,
// the free-tier overdue flag, and metered Stripe minutes.
func (p *Processor) accountUsage(ctx context.Context, out *relay.Outcome, log *logrus.Entry) {
	seconds := int64(math.Round(out.DurationSec))
	if seconds <= 0 || out.Call.UserID == "" {
		return
	}

	profile, err := p.profiles.AddMonthlyDuration(ctx, out.Call.UserID, seconds)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			log.Warn("no profile for call user, skipping usage accounting")
		} else {
			log.WithError(err).Error("failed to update monthly duration")
		}
		return
	}

	if strings.EqualFold(profile.SubscriptionTier, "free") && profile.MonthlyDuration > freeTierCapSec {
		if err := p.profiles.SetSubscriptionStatus(ctx, profile.UserID, "overdue"); err != nil {
			log.WithError(err).Error("failed to mark profile overdue")
		}
	}

	if p.usage != nil && profile.StripeCustomerID != "" {
		if err := p.usage.PostCallMinutes(ctx, profile.StripeCustomerID, out.Call.TwilioCallSid, out.DurationSec); err != nil {
			log.WithError(err).Error("stripe usage posting failed")
		}
	}
}
