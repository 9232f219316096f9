package archive

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/suPer8Hu/transcriber/internal/events"
)

// ErrBadMessage marks deliveries that can never be archived and should not be retried.
var ErrBadMessage = errors.New("archive: bad message")

// HandleMessage decodes a queued job event and archives it when terminal.
func (r *Recorder) HandleMessage(ctx context.Context, body []byte) error {
	var e events.Event
	if err := json.Unmarshal(body, &e); err != nil {
		return errors.Join(ErrBadMessage, err)
	}
	if e.JobID == "" {
		return ErrBadMessage
	}
	return r.Notify(ctx, e)
}
