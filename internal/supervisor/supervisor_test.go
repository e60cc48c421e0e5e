package supervisor

import (
	"testing"
)

func TestSubmitMissionValidation(t *testing.T) {
	testCases := []struct {
		name          string
		prompt        string
		goal          string
		maxIterations int
		expectError   bool
	}{
		{
			name:          "Valid mission",
			prompt:        "write a story",
			goal:          "make it scary",
			maxIterations: 3,
		},
		{
			name:          "Empty prompt rejected before queueing",
			prompt:        "",
			goal:          "g",
			maxIterations: 3,
			expectError:   true,
		},
		{
			name:          "Empty goal rejected before queueing",
			prompt:        "p",
			goal:          "   ",
			maxIterations: 3,
			expectError:   true,
		},
		{
			name:          "Non-positive iteration budget rejected",
			prompt:        "p",
			goal:          "g",
			maxIterations: 0,
			expectError:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := SubmitMission("", tc.prompt, tc.goal, tc.maxIterations)

			if tc.expectError {
				if err == nil {
					t.Error("Expected an error, but got nil")
					<-missionQueue // drain the wrongly queued mission
				}
				return
			}
			if err != nil {
				t.Fatalf("Did not expect an error, but got: %v", err)
			}
			if len(id) != 8 {
				t.Errorf("Expected an 8-char mission ID, got %q", id)
			}

			queued := <-missionQueue
			if queued.ID != id || queued.State != StatusPending {
				t.Errorf("Queued mission mismatched: %+v", queued)
			}
			if queued.InitialPrompt != tc.prompt || queued.Goal != tc.goal {
				t.Error("Queued mission must carry the submitted inputs")
			}
		})
	}
}

func TestCancelWithoutRunningMission(t *testing.T) {
	if _, err := CancelMission("deadbeef"); err == nil {
		t.Error("Cancelling with no running mission must fail")
	}
	if _, err := CancelMostRecent(); err == nil {
		t.Error("Cancelling most recent with no running mission must fail")
	}
}
