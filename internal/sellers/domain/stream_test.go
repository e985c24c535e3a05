package domain

import "testing"

func TestStreamEventTerminal(t *testing.T) {
	tests := []struct {
		stage StreamStage
		want  bool
	}{
		{StageProcessing, false},
		{StageFallback, false},
		{StageFetched, false},
		{StageCompleted, true},
		{StagePartialTimeout, true},
		{StageTimeout, true},
		{StageError, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			event := StreamEvent{Stage: tt.stage}
			if got := event.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}
