package domain

import (
	"errors"
	"testing"
)

func TestRun_ForwardOnly(t *testing.T) {
	run := NewRun("run-1", "hello", DefaultStageNames)

	if run.Status != RunPending || run.CurrentStage() != "" {
		t.Fatalf("new run: status=%s stage=%q", run.Status, run.CurrentStage())
	}

	for _, stage := range DefaultStageNames {
		if err := run.Enter(stage); err != nil {
			t.Fatalf("Enter(%s) error = %v", stage, err)
		}
		if run.CurrentStage() != stage {
			t.Errorf("CurrentStage() = %q, want %q", run.CurrentStage(), stage)
		}
	}

	if err := run.Enter(StageAnalyzer); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("regressing should fail, got %v", err)
	}
	if err := run.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if err := run.Fail(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fail after done should fail, got %v", err)
	}
}

func TestRun_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		steps   func(r *Run) error
		wantErr bool
	}{
		{
			name:    "skip a stage",
			steps:   func(r *Run) error { return r.Enter(StageGenerator) },
			wantErr: true,
		},
		{
			name: "complete early",
			steps: func(r *Run) error {
				_ = r.Enter(StageAnalyzer)
				return r.Complete()
			},
			wantErr: true,
		},
		{
			name:    "fail while pending",
			steps:   func(r *Run) error { return r.Fail() },
			wantErr: false,
		},
		{
			name: "enter after failure",
			steps: func(r *Run) error {
				_ = r.Enter(StageAnalyzer)
				_ = r.Fail()
				return r.Enter(StageGenerator)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.steps(NewRun("run", "in", DefaultStageNames))
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
