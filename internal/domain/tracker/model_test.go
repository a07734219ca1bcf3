package tracker

import "testing"

func TestCanClaim(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status Status
		exists bool
		force  bool
		want   bool
	}{
		{name: "absent", exists: false, want: true},
		{name: "failed retry", status: StatusFailed, exists: true, want: true},
		{name: "completed is terminal", status: StatusCompleted, exists: true, want: false},
		{name: "completed forced", status: StatusCompleted, exists: true, force: true, want: true},
		{name: "in progress", status: StatusInProgress, exists: true, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := CanClaim(tc.status, tc.exists, tc.force); got != tc.want {
				t.Fatalf("CanClaim(%q, %t, %t) = %t, want %t", tc.status, tc.exists, tc.force, got, tc.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"in_progress", "completed", "failed"} {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
	}
	if _, err := ParseStatus("queued"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if StatusInProgress.Terminal() || !StatusFailed.Terminal() || !StatusCompleted.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
}
