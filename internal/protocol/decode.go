package protocol

import (
	"encoding/json"
	"fmt"
)

// envelope is the superset of all inbound frame fields. Decoding happens
// once here at the transport boundary; everything past this point works
// with typed variants.
type envelope struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTyping bool   `json:"isTyping"`
	Offset   int    `json:"offset"`
}

// Decode parses one client frame into its Inbound variant. A frame that
// fails here is dropped by the caller without touching other connections.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch env.Type {
	case TypeMessage:
		return InboundMessage{Content: env.Content}, nil
	case TypeTyping:
		return InboundTyping{IsTyping: env.IsTyping}, nil
	case TypeLoadMore:
		return InboundLoadMore{Offset: env.Offset}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, env.Type)
	}
}
