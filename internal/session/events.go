package session

// The browser keeps the voice SDK and relays its events over the websocket
// bridge as typed frames. The orchestrator answers with commands the client
// executes against the SDK (start/stop a call) or the router (navigate).

type EventType string

const (
	EventStart         EventType = "start"
	EventCallStarted   EventType = "call-start"
	EventCallEnded     EventType = "call-end"
	EventTranscript    EventType = "transcript"
	EventSpeechStarted EventType = "speech-start"
	EventSpeechEnded   EventType = "speech-end"
	EventError         EventType = "error"
	EventDisconnect    EventType = "disconnect"
)

type Event struct {
	Type       EventType `json:"type"`
	Role       string    `json:"role,omitempty"`
	Transcript string    `json:"transcript,omitempty"`
	Final      bool      `json:"final,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type CommandType string

const (
	CommandStartCall CommandType = "start-call"
	CommandStopCall  CommandType = "stop-call"
	CommandNavigate  CommandType = "navigate"
	CommandAlert     CommandType = "alert"
	CommandSpeaking  CommandType = "speaking"
	CommandStatus    CommandType = "status"
)

type CallMode string

const (
	CallModeGenerate  CallMode = "generate"
	CallModeInterview CallMode = "interview"
)

type Command struct {
	Type      CommandType       `json:"type"`
	Mode      CallMode          `json:"mode,omitempty"`
	Assistant string            `json:"assistant,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	Path      string            `json:"path,omitempty"`
	Message   string            `json:"message,omitempty"`
	Speaking  bool              `json:"speaking,omitempty"`
	Status    Status            `json:"status,omitempty"`
}
