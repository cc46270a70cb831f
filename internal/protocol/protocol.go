package protocol

import (
	"encoding/json"
	"fmt"
)

// Version identifies a protocol release. Only the first two components
// take part in compatibility checks.
type Version [3]int

// Current is the version sent by clients and enforced by hosts built from
// this module.
var Current = Version{0, 26, 5}

// Compatible reports whether a client at version v may talk to a host at
// version local. A client whose (major, minor) pair is strictly greater than
// the host's is rejected.
func (v Version) Compatible(local Version) bool {
	if v[0] != local[0] {
		return v[0] < local[0]
	}
	return v[1] <= local[1]
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v[0], v[1], v[2])
}

// UnmarshalJSON accepts version arrays of any length, padding or truncating
// to three components.
func (v *Version) UnmarshalJSON(data []byte) error {
	var parts []int
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("version: %w", err)
	}
	*v = Version{}
	copy(v[:], parts)
	return nil
}

// Envelope is a command sent from a client to the host.
type Envelope struct {
	Cmd         string  `json:"cmd"`
	Version     Version `json:"version"`
	Payload     any     `json:"payload,omitempty"`
	NoResponse  bool    `json:"no_response"`
	AsyncID     string  `json:"async,omitempty"`
	CancelAsync bool    `json:"cancel_async,omitempty"`
}

// CancelEnvelope derives the request that withdraws e: same command and
// async id, no payload, no response expected.
func (e *Envelope) CancelEnvelope() *Envelope {
	return &Envelope{
		Cmd:         e.Cmd,
		Version:     e.Version,
		NoResponse:  true,
		AsyncID:     e.AsyncID,
		CancelAsync: true,
	}
}

// Response is sent from the host back to a client.
type Response struct {
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Traceback string `json:"tb,omitempty"`
}

// Failure builds a failed response carrying msg.
func Failure(msg string) *Response {
	return &Response{OK: false, Error: msg}
}

// VersionMismatchMessage is reported to clients newer than the host.
const VersionMismatchMessage = "The client you are using to send remote commands is newer than this terminal instance. This is not supported."
