package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/MKA06/luron-voice/internal/postcall"
	"github.com/MKA06/luron-voice/internal/relay"
	"github.com/MKA06/luron-voice/internal/services"
	"github.com/MKA06/luron-voice/internal/telephony"
)

// MediaHandler upgrades Twilio's media-stream connection and runs the call
// session over it.
type MediaHandler struct {
	agents   services.AgentService
	calls    services.CallService
	sessions *relay.Registry
	deps     relay.Deps
	post     *postcall.Processor
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewMediaHandler(agents services.AgentService, calls services.CallService, sessions *relay.Registry, deps relay.Deps, post *postcall.Processor, log *logrus.Entry) *MediaHandler {
	return &MediaHandler{
		agents:   agents,
		calls:    calls,
		sessions: sessions,
		deps:     deps,
		post:     post,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Twilio connects cross-origin
		},
		log: log,
	}
}

// MediaStream handles GET /media-stream.
func (h *MediaHandler) MediaStream(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := telephony.NewConn(ws)

	// Twilio sends the start event first; it carries the call identity.
	start, err := h.awaitStart(conn)
	if err != nil {
		h.log.WithError(err).Warn("media stream closed before start event")
		conn.Close()
		return
	}
	conn.SetStreamSid(start.StreamSid)

	log := h.log.WithField("call_sid", start.CallSid)

	call, err := h.calls.GetByTwilioSid(c.Request.Context(), start.CallSid)
	if err != nil {
		log.WithError(err).Error("unknown call on media stream")
		conn.Close()
		return
	}
	agent, err := h.agents.Get(c.Request.Context(), call.AgentID)
	if err != nil {
		log.WithError(err).Error("agent lookup failed")
		conn.Close()
		return
	}

	session := relay.NewSession(call, agent, conn, h.deps)
	h.sessions.Add(start.CallSid, session)
	defer h.sessions.Remove(start.CallSid)

	// The session owns the socket from here; it survives the HTTP request
	// scope, so it runs on a background context.
	outcome, err := session.Run(context.Background())
	if err != nil {
		log.WithError(err).Error("session failed to start")
		conn.Close()
		return
	}

	h.post.Process(context.Background(), outcome)
}

func (h *MediaHandler) awaitStart(conn *telephony.Conn) (*telephony.Start, error) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return nil, err
		}
		if frame.Event == telephony.EventStart && frame.Start != nil {
			return frame.Start, nil
		}
	}
}
