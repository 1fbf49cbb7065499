package minecraft

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gorcon/rcon"
)

func TestTellrawCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "plain line",
			line: "[2023-11-14 22:13:20] [textMessage] alice: hello",
			want: `tellraw @a {"text":"[2023-11-14 22:13:20] [textMessage] alice: hello"}`,
		},
		{
			name: "quotes are escaped",
			line: `she said "hi"`,
			want: `tellraw @a {"text":"she said \"hi\""}`,
		},
		{
			name: "backslashes survive",
			line: `c:\windows`,
			want: `tellraw @a {"text":"c:\\windows"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tellrawCommand(tt.line)
			if err != nil {
				t.Fatalf("tellrawCommand() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("tellrawCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestForwardDialFailure(t *testing.T) {
	s := New("localhost:0", "pw")
	dialErr := errors.New("connection refused")
	s.dial = func() (*rcon.Conn, error) { return nil, dialErr }

	err := s.Forward(context.Background(), "line")
	if err == nil {
		t.Fatal("Forward() = nil error, want dial failure")
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("error = %v, want wrapped dial error", err)
	}
	if !strings.Contains(err.Error(), "rcon dial") {
		t.Errorf("error = %v, want rcon dial context", err)
	}
}

func TestForwardCanceledContext(t *testing.T) {
	s := New("localhost:0", "pw")
	dialed := false
	s.dial = func() (*rcon.Conn, error) { dialed = true; return nil, errors.New("should not dial") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Forward(ctx, "line"); !errors.Is(err, context.Canceled) {
		t.Errorf("Forward() = %v, want context.Canceled", err)
	}
	if dialed {
		t.Error("Forward dialed despite canceled context")
	}
}

func TestCloseWithoutConnection(t *testing.T) {
	s := New("localhost:0", "pw")
	if err := s.Close(); err != nil {
		t.Errorf("Close() on unconnected service = %v, want nil", err)
	}
}
