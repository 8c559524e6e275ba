package telephony

import (
	"strings"
	"testing"
)

func TestConnectStreamTwiML(t *testing.T) {
	out := ConnectStreamTwiML("Hello, you have reached the office.", "Google.en-US-Chirp3-HD-Aoede",
		"wss://example.com/media-stream", map[string]string{"agent_id": "a1"})

	for _, want := range []string{
		`<Say voice="Google.en-US-Chirp3-HD-Aoede">Hello, you have reached the office.</Say>`,
		`<Stream url="wss://example.com/media-stream">`,
		`<Parameter name="agent_id" value="a1">`,
		"<Connect>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<Hangup>") {
		t.Error("connect response must not hang up")
	}
}

func TestConnectStreamTwiMLNoWelcome(t *testing.T) {
	out := ConnectStreamTwiML("", "voice", "wss://example.com/ms", nil)
	if strings.Contains(out, "<Say") {
		t.Errorf("empty welcome produced a Say verb:\n%s", out)
	}
}

func TestRejectTwiML(t *testing.T) {
	out := RejectTwiML("This number is not configured.", "voice")
	if !strings.Contains(out, "This number is not configured.") {
		t.Error("missing rejection message")
	}
	if !strings.Contains(out, "<Hangup>") {
		t.Error("missing Hangup verb")
	}
	if strings.Contains(out, "<Connect>") {
		t.Error("rejection must not bridge the stream")
	}
}
