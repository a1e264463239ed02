// Package bus is the channel publish/subscribe primitive shared by agents
// and the client bridge, plus the wire envelope that crosses it.
package bus

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Role is the conversational role carried on an envelope.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TypeMessage is the only envelope type on the wire.
const TypeMessage = "message"

// Pastel colour parameters for ColorFor.
const (
	pastelSaturation = 0.70
	pastelLightness  = 0.85
)

// ErrMalformed wraps every payload decoding failure.
var ErrMalformed = errors.New("malformed message")

// Envelope is one unit of chat content published on a channel.
type Envelope struct {
	Type      string `json:"type"`
	Sender    string `json:"sender"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Color     string `json:"color"`
}

// NewEnvelope stamps a message envelope with timestamp and sender colour.
func NewEnvelope(sender string, role Role, content string, at time.Time) Envelope {
	return Envelope{
		Type:      TypeMessage,
		Sender:    sender,
		Role:      role,
		Content:   content,
		Timestamp: Timestamp(at),
		Color:     ColorFor(sender),
	}
}

// Marshal encodes the envelope as wire JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Timestamp formats t as UTC ISO-8601 with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ColorFor returns a stable pastel "#rrggbb" colour for a sender name.
// The md5 digest of the name, taken as an integer mod 360, picks the hue.
func ColorFor(name string) string {
	sum := md5.Sum([]byte(name))
	hue := new(big.Int).Mod(new(big.Int).SetBytes(sum[:]), big.NewInt(360)).Int64()
	return colorful.Hsl(float64(hue), pastelSaturation, pastelLightness).Hex()
}

// Inbound is a decoded channel payload. It is either a ContentEnvelope or a
// LegacyResponseEnvelope.
type Inbound interface {
	// From is the sender name.
	From() string
	// Text is the message body shown to clients.
	Text() string
	// Prompt is the text handed to a responder.
	Prompt() string

	isInbound()
}

// ContentEnvelope is the regular envelope shape carrying a content field.
type ContentEnvelope struct {
	Envelope
}

func (c ContentEnvelope) From() string   { return c.Sender }
func (c ContentEnvelope) Text() string   { return c.Content }
func (c ContentEnvelope) Prompt() string { return c.Sender + ": " + c.Content }
func (ContentEnvelope) isInbound()       {}

// LegacyResponseEnvelope is produced by older agents that publish
// {"sender", "response"} instead of a content field. The response text
// already carries its own attribution, so Prompt doesn't prefix it.
type LegacyResponseEnvelope struct {
	Sender    string
	Response  string
	Timestamp string
}

func (l LegacyResponseEnvelope) From() string   { return l.Sender }
func (l LegacyResponseEnvelope) Text() string   { return l.Response }
func (l LegacyResponseEnvelope) Prompt() string { return l.Response }
func (LegacyResponseEnvelope) isInbound()       {}

// wireMessage accepts both producer shapes; pointers tell missing from empty.
type wireMessage struct {
	Type      string  `json:"type"`
	Sender    *string `json:"sender"`
	Role      Role    `json:"role"`
	Content   *string `json:"content"`
	Response  *string `json:"response"`
	Timestamp string  `json:"timestamp"`
	Color     string  `json:"color"`
}

// Decode converts a raw channel payload into an Inbound.
// A payload without a sender, or with neither content nor response, is malformed.
func Decode(payload []byte) (Inbound, error) {
	var w wireMessage
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Sender == nil {
		return nil, fmt.Errorf("%w: missing sender", ErrMalformed)
	}

	switch {
	case w.Content != nil:
		typ := w.Type
		if typ == "" {
			typ = TypeMessage
		}
		return ContentEnvelope{Envelope{
			Type:      typ,
			Sender:    *w.Sender,
			Role:      w.Role,
			Content:   *w.Content,
			Timestamp: w.Timestamp,
			Color:     w.Color,
		}}, nil
	case w.Response != nil:
		return LegacyResponseEnvelope{
			Sender:    *w.Sender,
			Response:  *w.Response,
			Timestamp: w.Timestamp,
		}, nil
	default:
		return nil, fmt.Errorf("%w: neither content nor response", ErrMalformed)
	}
}
