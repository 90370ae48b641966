package agent

// StreamEvent is a raw JSON line from claude's stream-json output. Most
// callers should use [Event], which flattens the nested structure.
type StreamEvent struct {
	Type          string          `json:"type"`
	Subtype       string          `json:"subtype,omitempty"`
	Message       *MessageContent `json:"message,omitempty"`
	ToolUseResult *ToolResult     `json:"tool_use_result,omitempty"`
}

// MessageContent holds the content blocks of an assistant message.
type MessageContent struct {
	Content []ContentBlock `json:"content,omitempty"`
}

// ContentBlock is one block of assistant output: "text" blocks carry Text,
// "tool_use" blocks carry ID, Name, and Input.
type ContentBlock struct {
	Type  string     `json:"type"`
	ID    string     `json:"id,omitempty"`
	Text  string     `json:"text,omitempty"`
	Name  string     `json:"name,omitempty"`
	Input *ToolInput `json:"input,omitempty"`
}

// ToolInput carries the parameters of a tool invocation. Which fields are
// set depends on the tool (shell tools use Command, file tools FilePath).
type ToolInput struct {
	Command     string `json:"command,omitempty"`
	Description string `json:"description,omitempty"`
	FilePath    string `json:"file_path,omitempty"`
	Content     string `json:"content,omitempty"`
}

// ToolResult is the outcome of a tool execution, echoed back in user events.
type ToolResult struct {
	ToolUseID   string `json:"tool_use_id,omitempty"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// EventType classifies stream events. A typical session is: system (init),
// alternating assistant/user events, then a final result event.
type EventType string

const (
	EventTypeSystem    EventType = "system"
	EventTypeAssistant EventType = "assistant"
	EventTypeUser      EventType = "user"
	EventTypeResult    EventType = "result"
)

// SubtypeInit marks the system event emitted when a session starts.
const SubtypeInit = "init"

// Event is a parsed agent output event with commonly needed fields pulled
// to the top level. Produced by [NewEventFromStream] and [Parser.Parse].
type Event struct {
	// Raw is the original stream event, nil for non-streaming providers.
	Raw *StreamEvent

	Type    EventType
	Subtype string

	// Text is assistant text output.
	Text string

	// Tool invocation fields, set on assistant tool_use events.
	ToolID          string
	ToolName        string
	ToolDescription string
	ToolCommand     string
	ToolFilePath    string

	// Tool result fields, set on user events carrying a result.
	ToolUseID       string
	ToolStdout      string
	ToolStderr      string
	ToolInterrupted bool
	HasToolResult   bool

	// SessionStarted is true for system init events.
	SessionStarted bool

	// SessionComplete is true for result events.
	SessionComplete bool
}

// NewEventFromStream flattens a raw stream event into an [Event].
func NewEventFromStream(raw *StreamEvent) Event {
	e := Event{
		Raw:     raw,
		Type:    EventType(raw.Type),
		Subtype: raw.Subtype,
	}

	switch e.Type {
	case EventTypeSystem:
		if raw.Subtype == SubtypeInit {
			e.SessionStarted = true
		}

	case EventTypeAssistant:
		if raw.Message != nil {
			for _, block := range raw.Message.Content {
				switch block.Type {
				case "text":
					e.Text = block.Text
				case "tool_use":
					e.ToolID = block.ID
					e.ToolName = block.Name
					if block.Input != nil {
						e.ToolDescription = block.Input.Description
						e.ToolCommand = block.Input.Command
						e.ToolFilePath = block.Input.FilePath
					}
				}
			}
		}

	case EventTypeUser:
		if raw.ToolUseResult != nil {
			e.ToolUseID = raw.ToolUseResult.ToolUseID
			e.ToolStdout = raw.ToolUseResult.Stdout
			e.ToolStderr = raw.ToolUseResult.Stderr
			e.ToolInterrupted = raw.ToolUseResult.Interrupted
			e.HasToolResult = true
		}

	case EventTypeResult:
		e.SessionComplete = true
	}

	return e
}

// TextEvent wraps a plain output line from a non-streaming provider into
// an assistant text event.
func TextEvent(line string) Event {
	return Event{Type: EventTypeAssistant, Text: line}
}

// IsText reports whether the event carries assistant text output.
func (e Event) IsText() bool {
	return e.Type == EventTypeAssistant && e.Text != ""
}

// IsToolUse reports whether the event is a tool invocation.
func (e Event) IsToolUse() bool {
	return e.Type == EventTypeAssistant && e.ToolName != ""
}

// IsToolResult reports whether the event carries tool execution output.
func (e Event) IsToolResult() bool {
	return e.Type == EventTypeUser && e.HasToolResult
}
