// Package minecraft forwards chat lines to a Minecraft server over RCON as
// tellraw commands. It is a best-effort sink: callers are expected to log and
// drop errors rather than let them stop the chat stream.
package minecraft

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorcon/rcon"
)

const rconTimeout = 5 * time.Second

// Service is a chat.Sink that broadcasts lines with `tellraw @a`. The RCON
// connection is dialed lazily on first send and kept open; any execute error
// drops it so the next send redials.
type Service struct {
	addr     string
	password string

	mu   sync.Mutex
	conn *rcon.Conn
	dial func() (*rcon.Conn, error)
}

// New creates a Service for the given RCON address ("host:port") and password.
func New(addr, password string) *Service {
	s := &Service{addr: addr, password: password}
	s.dial = func() (*rcon.Conn, error) {
		return rcon.Dial(s.addr, s.password,
			rcon.SetDialTimeout(rconTimeout),
			rcon.SetDeadline(rconTimeout))
	}
	return s
}

func (s *Service) Name() string { return "minecraft" }

// Forward broadcasts line to all players.
func (s *Service) Forward(ctx context.Context, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd, err := tellrawCommand(line)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		conn, err := s.dial()
		if err != nil {
			return fmt.Errorf("rcon dial %s: %w", s.addr, err)
		}
		s.conn = conn
	}
	if _, err := s.conn.Execute(cmd); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return fmt.Errorf("rcon execute: %w", err)
	}
	return nil
}

// Close tears down the RCON connection if one is open.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// tellrawCommand builds the broadcast command. The text component is a JSON
// string, so the line goes through json.Marshal instead of manual escaping.
func tellrawCommand(line string) (string, error) {
	payload, err := json.Marshal(map[string]string{"text": line})
	if err != nil {
		return "", err
	}
	return "tellraw @a " + string(payload), nil
}
