package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/services"
	"github.com/MKA06/luron-voice/internal/telephony"
	"github.com/MKA06/luron-voice/internal/utils"
	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
)

const (
	sayVoice = "Google.en-US-Chirp3-HD-Aoede"

	upgradeNotice = "This agent has used up its free monthly call time. Please upgrade the plan to continue receiving calls. Goodbye."

	// freeTierCapSec mirrors the post-call accounting cap.
	freeTierCapSec = 600
)

// TwilioHandler answers Twilio's incoming-call webhook with TwiML that
// speaks the agent's welcome and bridges the audio to the media stream.
type TwilioHandler struct {
	agents   services.AgentService
	calls    services.CallService
	profiles pgrepo.ProfileRepository
	log      *logrus.Entry
}

func NewTwilioHandler(agents services.AgentService, calls services.CallService, profiles pgrepo.ProfileRepository, log *logrus.Entry) *TwilioHandler {
	return &TwilioHandler{agents: agents, calls: calls, profiles: profiles, log: log}
}

// IncomingCall handles POST /incoming-call.
func (h *TwilioHandler) IncomingCall(c *gin.Context) {
	callSid := c.PostForm("CallSid")
	from := c.PostForm("From")
	to := c.PostForm("To")

	log := h.log.WithFields(logrus.Fields{"call_sid": callSid, "to": to})

	agent, err := h.agents.GetByPhoneNumber(c.Request.Context(), to)
	if err != nil {
		log.WithError(err).Warn("no agent for inbound number")
		c.Data(http.StatusOK, "application/xml", []byte(telephony.RejectTwiML("This number is not configured. Goodbye.", sayVoice)))
		return
	}

	if h.overFreeTierCap(c, agent.UserID) {
		log.Info("free tier cap exceeded, rejecting call")
		c.Data(http.StatusOK, "application/xml", []byte(telephony.RejectTwiML(upgradeNotice, sayVoice)))
		return
	}

	if _, err := h.calls.Create(c.Request.Context(), agent, callSid, from, to); err != nil {
		// The call proceeds; post-call persistence will miss its row but the
		// caller should not hear an error for a bookkeeping failure.
		log.WithError(err).Error("failed to record inbound call")
	}

	streamURL := "wss://" + h.publicHost(c) + "/media-stream"
	twiml := telephony.ConnectStreamTwiML(agent.WelcomeMessage, sayVoice, streamURL, nil)
	c.Data(http.StatusOK, "application/xml", []byte(twiml))
}

func (h *TwilioHandler) overFreeTierCap(c *gin.Context, userID string) bool {
	profile, err := h.profiles.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			h.log.WithError(err).Warn("profile lookup failed, allowing call")
		}
		return false
	}
	return profile.SubscriptionTier == "free" && profile.MonthlyDuration > freeTierCapSec
}

func (h *TwilioHandler) publicHost(c *gin.Context) string {
	if host := os.Getenv("PUBLIC_HOST"); host != "" {
		return host
	}
	return c.Request.Host
}
