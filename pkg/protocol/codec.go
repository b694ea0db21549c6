package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedMessage = errors.New("malformed message")

// Encode serializes m. Every variant is plain data, so marshalling cannot fail.
func Encode(m Message) []byte {
	payload, _ := json.Marshal(m)
	return payload
}

// Decode parses one frame into its variant. Unknown tags, unknown fields and
// invalid payloads are rejected with ErrMalformedMessage.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var (
		msg Message
		err error
	)
	switch head.Type {
	case TypeSubscribe:
		var m Subscribe
		err = decodeBody(data, &m)
		if err == nil && m.GameID <= 0 {
			err = fmt.Errorf("%w: game_id must be positive", ErrMalformedMessage)
		}
		msg = m
	case TypeUnsubscribe:
		var m Unsubscribe
		err = decodeBody(data, &m)
		if err == nil && m.GameID <= 0 {
			err = fmt.Errorf("%w: game_id must be positive", ErrMalformedMessage)
		}
		msg = m
	case TypeSnapshot:
		var m Snapshot
		err = decodeBody(data, &m)
		msg = m
	case TypePhaseUpdate:
		var m PhaseUpdate
		err = decodeBody(data, &m)
		if err == nil && m.Phase == "" {
			err = fmt.Errorf("%w: phase is required", ErrMalformedMessage)
		}
		msg = m
	case TypeQuestion:
		var m QuestionBroadcast
		err = decodeBody(data, &m)
		if err == nil && m.Question.ID <= 0 {
			err = fmt.Errorf("%w: question id must be positive", ErrMalformedMessage)
		}
		msg = m
	case TypeAnswerReveal:
		var m AnswerReveal
		err = decodeBody(data, &m)
		msg = m
	case TypeLeaderboardUpdate:
		var m LeaderboardUpdate
		err = decodeBody(data, &m)
		msg = m
	case TypeError:
		var m Error
		err = decodeBody(data, &m)
		msg = m
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, head.Type)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// decodeBody strictly decodes data into v, tolerating only the "type" tag.
func decodeBody(data []byte, v any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	delete(fields, "type")
	body, _ := json.Marshal(fields)

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
