package telephony

import (
	"encoding/xml"
	"strings"
)

type twimlResponse struct {
	XMLName xml.Name      `xml:"Response"`
	Say     []twimlSay    `xml:"Say,omitempty"`
	Connect *twimlConnect `xml:"Connect,omitempty"`
	Hangup  *struct{}     `xml:"Hangup,omitempty"`
}

type twimlSay struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter,omitempty"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConnectStreamTwiML answers an incoming call: speak the agent's welcome
// message, then bridge the call audio to the media-stream WebSocket at
// streamURL. Extra params ride along as <Parameter> elements and come back
// in the start event's customParameters.
func ConnectStreamTwiML(welcome, sayVoice, streamURL string, params map[string]string) string {
	resp := twimlResponse{}
	if welcome != "" {
		resp.Say = append(resp.Say, twimlSay{Voice: sayVoice, Text: welcome})
	}
	stream := twimlStream{URL: streamURL}
	for name, value := range params {
		stream.Parameters = append(stream.Parameters, twimlParameter{Name: name, Value: value})
	}
	resp.Connect = &twimlConnect{Stream: stream}
	return renderTwiML(resp)
}

// RejectTwiML speaks a notice and hangs up without bridging.
func RejectTwiML(message, sayVoice string) string {
	resp := twimlResponse{
		Say:    []twimlSay{{Voice: sayVoice, Text: message}},
		Hangup: &struct{}{},
	}
	return renderTwiML(resp)
}

func renderTwiML(resp twimlResponse) string {
	var sb strings.Builder
	sb.WriteString(xml.Header)
	b, err := xml.Marshal(resp)
	if err != nil {
		return xml.Header + "<Response></Response>"
	}
	sb.Write(b)
	return sb.String()
}
