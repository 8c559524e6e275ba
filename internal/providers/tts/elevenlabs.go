package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MKA06/luron-voice/internal/utils"
)

const (
	elevenLabsModel     = "eleven_turbo_v2_5"
	elevenLabsFormat    = "ulaw_8000"
	elevenLabsLatency   = 4
	elevenLabsKeepAlive = 10 * time.Second
)

// ElevenLabsDialer opens stream-input synthesis connections.
type ElevenLabsDialer struct {
	APIKey string
	// DefaultVoiceID is used when a call's agent has no voice configured.
	DefaultVoiceID string
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type initMessage struct {
	Text             string        `json:"text"`
	VoiceSettings    voiceSettings `json:"voice_settings"`
	GenerationConfig struct {
		ChunkLengthSchedule []int `json:"chunk_length_schedule"`
	} `json:"generation_config"`
	APIKey string `json:"xi_api_key"`
}

func (d *ElevenLabsDialer) Dial(ctx context.Context, voiceID string) (Stream, error) {
	const op = "ElevenLabsDialer.Dial"

	if voiceID == "" {
		voiceID = d.DefaultVoiceID
	}
	u := fmt.Sprintf(
		"wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s&output_format=%s&optimize_streaming_latency=%d",
		voiceID, elevenLabsModel, elevenLabsFormat, elevenLabsLatency,
	)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "elevenlabs connect failed", err)
	}

	init := initMessage{
		Text: " ",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.8,
			Style:           0,
			UseSpeakerBoost: true,
		},
		APIKey: d.APIKey,
	}
	init.GenerationConfig.ChunkLengthSchedule = []int{120, 160, 250, 290}

	s := &elevenLabsStream{
		conn:   conn,
		chunks: make(chan Chunk, 32),
		done:   make(chan struct{}),
	}
	if err := s.writeJSON(init); err != nil {
		conn.Close()
		return nil, utils.E(utils.CodeUnavailable, op, "elevenlabs init failed", err)
	}

	go s.readLoop()
	go s.keepAliveLoop()
	return s, nil
}

type elevenLabsStream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	chunks  chan Chunk
	done    chan struct{}
	closed  sync.Once
}

func (s *elevenLabsStream) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

// SendText submits a fragment. A trailing space tells the synthesizer the
// fragment is a complete word boundary.
func (s *elevenLabsStream) SendText(text string) error {
	if !strings.HasSuffix(text, " ") {
		text += " "
	}
	return s.writeJSON(map[string]any{
		"text":                   text,
		"try_trigger_generation": true,
	})
}

func (s *elevenLabsStream) Flush() error {
	return s.writeJSON(map[string]any{"text": "", "flush": true})
}

func (s *elevenLabsStream) Chunks() <-chan Chunk { return s.chunks }

func (s *elevenLabsStream) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		// Empty text closes the input side cleanly.
		_ = s.writeJSON(map[string]any{"text": ""})
		err = s.conn.Close()
	})
	return err
}

type elevenLabsEvent struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
}

func (s *elevenLabsStream) readLoop() {
	defer close(s.chunks)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.chunks <- Chunk{Err: utils.E(utils.CodeUnavailable, "elevenLabsStream.readLoop", "elevenlabs read failed", err)}
			}
			return
		}

		var ev elevenLabsEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		if ev.Audio != "" {
			audio, derr := base64.StdEncoding.DecodeString(ev.Audio)
			if derr != nil {
				continue
			}
			s.chunks <- Chunk{Audio: audio}
		}
		if ev.IsFinal {
			s.chunks <- Chunk{Final: true}
		}
	}
}

// A single space every 10 seconds keeps the input side alive without
// triggering synthesis.
func (s *elevenLabsStream) keepAliveLoop() {
	ticker := time.NewTicker(elevenLabsKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeJSON(map[string]any{"text": " "}); err != nil {
				return
			}
		}
	}
}
