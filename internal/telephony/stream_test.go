package telephony

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestFrameUnmarshalStart(t *testing.T) {
	raw := `{"event":"start","sequenceNumber":"1","start":{"streamSid":"MZ123","callSid":"CA456","customParameters":{"agent_id":"a1"}}}`

	var f Frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Event != EventStart {
		t.Errorf("event = %q", f.Event)
	}
	if f.Start == nil || f.Start.StreamSid != "MZ123" || f.Start.CallSid != "CA456" {
		t.Errorf("start = %+v", f.Start)
	}
	if f.Start.CustomParameters["agent_id"] != "a1" {
		t.Errorf("custom parameters = %v", f.Start.CustomParameters)
	}
}

func TestMediaAudioDecodes(t *testing.T) {
	payload := []byte{0xFF, 0x7F, 0x00}
	m := Media{Payload: base64.StdEncoding.EncodeToString(payload)}

	got, err := m.Audio()
	if err != nil {
		t.Fatalf("Audio: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("decoded = %v, want %v", got, payload)
	}
}

func TestMediaAudioRejectsGarbage(t *testing.T) {
	m := Media{Payload: "not base64!!!"}
	if _, err := m.Audio(); err == nil {
		t.Error("expected decode error")
	}
}
