package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeResolution EventType = "resolution"
	EventTypePlan       EventType = "plan"
	EventTypeStep       EventType = "step"
	EventTypeApproval   EventType = "approval"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	PlanID    string    `json:"plan_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogResolution(userID, entityType, text, status string, confidence float64) {
	l.Log(Event{
		Type:   EventTypeResolution,
		UserID: userID,
		Data: map[string]any{
			"entity_type": entityType,
			"text":        text,
			"status":      status,
			"confidence":  confidence,
		},
	})
}

func (l *Logger) LogPlan(userID, planID, status, detail string) {
	l.Log(Event{
		Type:   EventTypePlan,
		UserID: userID,
		PlanID: planID,
		Data:   map[string]string{"status": status, "detail": detail},
	})
}

func (l *Logger) LogStep(userID, planID string, stepIndex int, tool, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		UserID: userID,
		PlanID: planID,
		Data: map[string]any{
			"step_index": stepIndex,
			"tool":       tool,
			"status":     status,
		},
	})
}

func (l *Logger) LogApproval(userID, planID, approvalID, status string) {
	l.Log(Event{
		Type:   EventTypeApproval,
		UserID: userID,
		PlanID: planID,
		Data:   map[string]string{"approval_id": approvalID, "status": status},
	})
}

func (l *Logger) LogToolCall(userID, planID, tool, args string) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		UserID: userID,
		PlanID: planID,
		Data: map[string]string{
			"tool": tool,
			"args": args,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(userID, planID string, prompt any, response string, toolCalls any) {
	l.Log(Event{
		Type:   EventTypeLLM,
		UserID: userID,
		PlanID: planID,
		Data: map[string]any{
			"prompt":     prompt,
			"response":   response,
			"tool_calls": toolCalls,
		},
	})
}
