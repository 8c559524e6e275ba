// Package telephony speaks the Twilio media-stream wire protocol: JSON
// events over a WebSocket carrying base64 mu-law 8 kHz audio.
package telephony

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event names on the media-stream socket.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
	EventClear = "clear"
)

// Frame is one inbound media-stream message.
type Frame struct {
	Event string `json:"event"`
	Start *Start `json:"start,omitempty"`
	Media *Media `json:"media,omitempty"`
}

// Start carries the stream identity and the call parameters passed through
// from the TwiML <Stream> verb.
type Start struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type Media struct {
	Payload string `json:"payload"`
}

// Audio returns the decoded mu-law bytes of a media frame.
func (m *Media) Audio() ([]byte, error) {
	return base64.StdEncoding.DecodeString(m.Payload)
}

type outboundMedia struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     Media  `json:"media"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

// Conn wraps the telephony WebSocket with a write lock so the audio pump
// and control paths can share it.
type Conn struct {
	ws        *websocket.Conn
	writeMu   sync.Mutex
	streamSid string
}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

// SetStreamSid records the stream identity from the start event. Outbound
// frames are dropped until it is set.
func (c *Conn) SetStreamSid(sid string) {
	c.writeMu.Lock()
	c.streamSid = sid
	c.writeMu.Unlock()
}

func (c *Conn) StreamSid() string {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.streamSid
}

// ReadFrame blocks for the next inbound event.
func (c *Conn) ReadFrame() (*Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SendAudio forwards synthesized mu-law audio to the caller's device.
func (c *Conn) SendAudio(audio []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.streamSid == "" {
		return nil
	}
	msg := outboundMedia{
		Event:     EventMedia,
		StreamSid: c.streamSid,
		Media:     Media{Payload: base64.StdEncoding.EncodeToString(audio)},
	}
	return c.writeJSON(msg)
}

// SendClear tells the telephony provider to discard any audio already
// buffered for playback. Used by the barge-in sequence.
func (c *Conn) SendClear() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.streamSid == "" {
		return nil
	}
	return c.writeJSON(outboundClear{Event: EventClear, StreamSid: c.streamSid})
}

func (c *Conn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func (c *Conn) Close() error { return c.ws.Close() }
