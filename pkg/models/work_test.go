package models

import "testing"

func TestWorkRequest_Valid(t *testing.T) {
	tests := []struct {
		name string
		req  WorkRequest
		want bool
	}{
		{
			name: "well-formed request is valid",
			req:  WorkRequest{Type: "work_request", Task: "fix the build", Urgency: UrgencyNormal},
			want: true,
		},
		{
			name: "missing urgency is still valid",
			req:  WorkRequest{Type: "work_request", Task: "fix the build"},
			want: true,
		},
		{
			name: "empty task is invalid",
			req:  WorkRequest{Type: "work_request", Task: ""},
			want: false,
		},
		{
			name: "wrong type is invalid",
			req:  WorkRequest{Type: "reminder", Task: "fix the build"},
			want: false,
		},
		{
			name: "missing type is invalid",
			req:  WorkRequest{Task: "fix the build"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Valid(); got != tt.want {
				t.Errorf("WorkRequest.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUrgency_Valid(t *testing.T) {
	tests := []struct {
		name    string
		urgency Urgency
		want    bool
	}{
		{"quick is valid", UrgencyQuick, true},
		{"normal is valid", UrgencyNormal, true},
		{"empty is invalid", Urgency(""), false},
		{"unknown is invalid", Urgency("asap"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.urgency.Valid(); got != tt.want {
				t.Errorf("Urgency(%q).Valid() = %v, want %v", tt.urgency, got, tt.want)
			}
		})
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{
			name: "single worker",
			plan: Plan{Type: "plan", Workers: []WorkerTask{
				{ID: "w1", Prompt: "do the thing"},
			}},
			wantErr: false,
		},
		{
			name: "multiple workers with dependencies",
			plan: Plan{Type: "plan", Workers: []WorkerTask{
				{ID: "a", Prompt: "first"},
				{ID: "b", Prompt: "second", DependsOn: []string{"a"}},
			}},
			wantErr: false,
		},
		{
			name:    "no workers",
			plan:    Plan{Type: "plan"},
			wantErr: true,
		},
		{
			name: "empty id",
			plan: Plan{Type: "plan", Workers: []WorkerTask{
				{ID: "", Prompt: "do the thing"},
			}},
			wantErr: true,
		},
		{
			name: "empty prompt",
			plan: Plan{Type: "plan", Workers: []WorkerTask{
				{ID: "w1", Prompt: ""},
			}},
			wantErr: true,
		},
		{
			name: "duplicate ids",
			plan: Plan{Type: "plan", Workers: []WorkerTask{
				{ID: "w1", Prompt: "first"},
				{ID: "w1", Prompt: "second"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Plan.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
