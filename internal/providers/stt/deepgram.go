package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MKA06/luron-voice/internal/utils"
)

const (
	deepgramURL         = "wss://api.deepgram.com/v1/listen"
	deepgramModel       = "nova-3"
	deepgramKeepAlive   = 5 * time.Second
	deepgramUtteranceMs = "1000"
	deepgramEndpointing = "150"
)

// DeepgramDialer opens live recognition streams against Deepgram.
type DeepgramDialer struct {
	APIKey string
}

func (d *DeepgramDialer) Dial(ctx context.Context, language string) (Stream, error) {
	const op = "DeepgramDialer.Dial"

	u, err := url.Parse(deepgramURL)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "bad deepgram url", err)
	}
	q := u.Query()
	q.Set("model", deepgramModel)
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", "8000")
	q.Set("channels", "1")
	q.Set("interim_results", "true")
	q.Set("utterance_end_ms", deepgramUtteranceMs)
	q.Set("vad_events", "true")
	q.Set("endpointing", deepgramEndpointing)
	if language != "" {
		q.Set("language", language)
	}
	u.RawQuery = q.Encode()

	header := http.Header{"Authorization": {"Token " + d.APIKey}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "deepgram connect failed", err)
	}

	s := &deepgramStream{
		conn:    conn,
		results: make(chan Result, 32),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	go s.keepAliveLoop()
	return s, nil
}

type deepgramStream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	results chan Result
	done    chan struct{}
	closed  sync.Once
}

func (s *deepgramStream) Send(audio []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.BinaryMessage, audio)
}

func (s *deepgramStream) Results() <-chan Result { return s.results }

func (s *deepgramStream) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

type deepgramEvent struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
}

func (s *deepgramStream) readLoop() {
	defer close(s.results)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.results <- Result{Err: utils.E(utils.CodeUnavailable, "deepgramStream.readLoop", "deepgram read failed", err)}
			}
			return
		}

		var ev deepgramEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}

		switch ev.Type {
		case "Results":
			var transcript string
			if len(ev.Channel.Alternatives) > 0 {
				transcript = ev.Channel.Alternatives[0].Transcript
			}
			s.results <- Result{
				Transcript:  transcript,
				IsFinal:     ev.IsFinal,
				SpeechFinal: ev.SpeechFinal,
			}
		case "UtteranceEnd":
			s.results <- Result{UtteranceEnd: true}
		}
	}
}

// Deepgram drops idle connections; a KeepAlive every 5 seconds holds the
// stream open across silence.
func (s *deepgramStream) keepAliveLoop() {
	ticker := time.NewTicker(deepgramKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"KeepAlive"}`))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
