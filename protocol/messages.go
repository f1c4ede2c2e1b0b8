package protocol

import (
	"bytes"
	"encoding/json"

	"github.com/GordonDrop/mcpkit/internal/jsoncodec"
)

// Version is the envelope protocol version.
const Version = "2.0"

// MethodTool is the only method served over the line protocol.
const MethodTool = "tool"

var nullID = json.RawMessage("null")

// Request is an inbound envelope.
type Request struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              json.RawMessage `json:"id,omitempty"`
	Method          string          `json:"method"`
	Params          json.RawMessage `json:"params,omitempty"`
}

// ToolParams are the params of a "tool" request.
type ToolParams struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Response is an outbound envelope. Exactly one of Result and Error is
// encoded; the id is always present and null when unknown.
type Response struct {
	ProtocolVersion string
	ID              json.RawMessage
	Result          any
	Error           *Error
}

type resultEnvelope struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              json.RawMessage `json:"id"`
	Result          any             `json:"result"`
}

type errorEnvelope struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              json.RawMessage `json:"id"`
	Error           *Error          `json:"error"`
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if len(id) == 0 {
		id = nullID
	}
	version := r.ProtocolVersion
	if version == "" {
		version = Version
	}
	if r.Error != nil {
		return jsoncodec.Marshal(errorEnvelope{ProtocolVersion: version, ID: id, Error: r.Error})
	}
	return jsoncodec.Marshal(resultEnvelope{ProtocolVersion: version, ID: id, Result: r.Result})
}

// RawResponse is the decoding side of Response, used by clients.
type RawResponse struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ID              json.RawMessage `json:"id"`
	Result          json.RawMessage `json:"result,omitempty"`
	Error           *Error          `json:"error,omitempty"`
}

// NewResponse creates a successful response.
func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{
		ProtocolVersion: Version,
		ID:              id,
		Result:          result,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{
		ProtocolVersion: Version,
		ID:              id,
		Error:           err,
	}
}

// DecodeRequest parses one line into a Request. On failure it returns a
// parse error (invalid JSON) or an invalid-request error (wrong shape);
// in the latter case the returned Request carries the best-effort id.
func DecodeRequest(data []byte) (*Request, *Error) {
	if !json.Valid(data) {
		return nil, NewParseError(MsgParseError)
	}

	var fields map[string]json.RawMessage
	if err := jsoncodec.Unmarshal(data, &fields); err != nil || fields == nil {
		return &Request{}, NewInvalidRequest(MsgInvalidRequest)
	}

	req := &Request{}
	rawID, hasID := fields["id"]
	if hasID {
		if !validID(rawID) {
			return req, NewInvalidRequest(MsgInvalidRequest)
		}
		req.ID = rawID
	}

	version, ok := decodeString(fields["protocolVersion"])
	if !ok || version != Version {
		return req, NewInvalidRequest(MsgInvalidRequest)
	}
	req.ProtocolVersion = version

	method, ok := decodeString(fields["method"])
	if !ok {
		return req, NewInvalidRequest(MsgInvalidRequest)
	}
	req.Method = method
	req.Params = fields["params"]
	return req, nil
}

// DecodeToolParams validates the params of a "tool" request.
func DecodeToolParams(raw json.RawMessage) (*ToolParams, *Error) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 {
		return nil, NewInvalidParams(MsgInvalidParams)
	}
	if err := jsoncodec.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, NewInvalidParams(MsgInvalidParams)
	}
	name, ok := decodeString(fields["name"])
	if !ok {
		return nil, NewInvalidParams(MsgInvalidParams)
	}
	return &ToolParams{Name: name, Input: fields["input"]}, nil
}

// validID reports whether raw is a string, number, or null.
func validID(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	switch c := raw[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	case bytes.Equal(raw, nullID):
		return true
	}
	return false
}

func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := jsoncodec.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
