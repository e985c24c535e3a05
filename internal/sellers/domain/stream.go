package domain

// StreamStage tags one event in a streaming lookup's progress sequence.
type StreamStage string

const (
	StageProcessing     StreamStage = "processing"
	StageFallback       StreamStage = "fallback"
	StageFetched        StreamStage = "fetched"
	StageCompleted      StreamStage = "completed"
	StagePartialTimeout StreamStage = "partial_timeout"
	StageTimeout        StreamStage = "timeout"
	StageError          StreamStage = "error"
)

// StreamLookupRequest adds streaming controls to a batch lookup.
type StreamLookupRequest struct {
	LookupRequest
	TimeoutMs       int    `json:"timeout_ms,omitempty"`
	PartialResponse bool   `json:"partial_response,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// StreamEvent is one element of a streaming lookup's ordered event
// sequence. The sequence ends with exactly one terminal event.
type StreamEvent struct {
	Stage     StreamStage     `json:"stage"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message,omitempty"`
	Response  *LookupResponse `json:"response,omitempty"`
	RetryHint string          `json:"retry_hint,omitempty"`
}

// Terminal reports whether the event ends the sequence.
func (e StreamEvent) Terminal() bool {
	switch e.Stage {
	case StageCompleted, StagePartialTimeout, StageTimeout, StageError:
		return true
	default:
		return false
	}
}
