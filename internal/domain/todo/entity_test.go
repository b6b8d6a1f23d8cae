package todo

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatus_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    Status
		wantErr bool
	}{
		{name: "active", in: `"ACTIVE"`, want: StatusActive},
		{name: "done", in: `"DONE"`, want: StatusDone},
		{name: "lowercase は拒否", in: `"active"`, wantErr: true},
		{name: "未知の値", in: `"PENDING"`, wantErr: true},
		{name: "空文字", in: `""`, wantErr: true},
		{name: "数値", in: `1`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var got Status
			err := json.Unmarshal([]byte(tc.in), &got)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got status %q", got)
				}
				if !errors.Is(err, ErrInvalidStatus) {
					t.Errorf("expected ErrInvalidStatus, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStatus_MarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(StatusDone)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(b) != `"DONE"` {
		t.Errorf("expected %q, got %q", `"DONE"`, string(b))
	}

	if _, err := json.Marshal(Status("nope")); err == nil {
		t.Error("expected error for invalid status, got nil")
	}
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	if s, err := ParseStatus("ACTIVE"); err != nil || s != StatusActive {
		t.Errorf("expected ACTIVE, got %q (err=%v)", s, err)
	}
	if _, err := ParseStatus("Done"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}
