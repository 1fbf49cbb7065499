package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tkhrdev/livebridge/telemetry"
)

// Sink receives one formatted log line per normalized message.
type Sink interface {
	Name() string
	Forward(ctx context.Context, line string) error
}

// MessageSource is the producer side of the relay; *Streamer implements it.
type MessageSource interface {
	Next(ctx context.Context) (Message, error)
}

// Relay pulls messages from src until the stream terminates, prints each
// formatted line to stdout, and forwards it to every sink.
//
// The failure domains are deliberately asymmetric: a sink error is logged,
// counted, and swallowed so a slow or broken consumer never stops the
// producer, while a producer error ends the relay. Returns nil on normal end
// of stream, the terminal error otherwise.
func Relay(ctx context.Context, src MessageSource, sinks ...Sink) error {
	for {
		msg, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrStreamEnded) {
				return nil
			}
			return err
		}
		line := msg.LogLine()
		fmt.Println(line)
		for _, sink := range sinks {
			if err := sink.Forward(ctx, line); err != nil {
				telemetry.CountForwardFailure(sink.Name())
				slog.Warn("sink forward failed", slog.String("sink", sink.Name()), slog.Any("err", err))
			}
		}
	}
}
