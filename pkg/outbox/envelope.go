package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glowcart/glowcart-backend/pkg/enums"
)

// CurrentVersion is stamped on envelopes whose producer did not pick one.
const CurrentVersion = 1

// ErrMalformedEnvelope wraps every DecodeEnvelope failure. Such rows can never
// be published as stored.
var ErrMalformedEnvelope = errors.New("malformed outbox envelope")

// ActorRef identifies who produced the event. Guest actors carry only a session id.
type ActorRef struct {
	UserID    *uuid.UUID `json:"userId,omitempty"`
	SessionID string     `json:"sessionId,omitempty"`
	Role      string     `json:"role,omitempty"`
}

// PayloadEnvelope is the body stored in outbox_events.payload and published
// verbatim. Type and AggregateID repeat the row columns so consumers do not
// depend on message attributes.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"eventId"`
	Type        enums.OutboxEventType `json:"type,omitempty"`
	AggregateID *uuid.UUID            `json:"aggregateId,omitempty"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload and checks the fields every
// consumer relies on.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch {
	case env.EventID == "":
		return env, fmt.Errorf("%w: event id missing", ErrMalformedEnvelope)
	case env.Version < 1:
		return env, fmt.Errorf("%w: version %d", ErrMalformedEnvelope, env.Version)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, fmt.Errorf("%w: data missing", ErrMalformedEnvelope)
	}
	return env, nil
}
