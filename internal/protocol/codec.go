package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	frameStart = "\x1bP@kitty-cmd"
	frameEnd   = "\x1b\\"
)

var (
	// ErrMalformedFrame means the bytes do not hold a complete wrapped frame.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrMalformedPayload means the frame body is not valid JSON for the target.
	ErrMalformedPayload = errors.New("malformed payload")
)

// EncodeCommand serializes env as ASCII-only JSON wrapped in a frame.
func EncodeCommand(env *Envelope) ([]byte, error) {
	body, err := marshalCompact(env)
	if err != nil {
		return nil, fmt.Errorf("encoding command %q: %w", env.Cmd, err)
	}
	return wrap(asciiOnly(body)), nil
}

// EncodeResponse serializes resp as UTF-8 JSON wrapped in a frame.
func EncodeResponse(resp *Response) ([]byte, error) {
	body, err := marshalCompact(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}
	return wrap(body), nil
}

// Decode finds the first frame in data and unmarshals its body into v.
func Decode(data []byte, v any) error {
	body, _, ok := FindFrame(data)
	if !ok {
		return ErrMalformedFrame
	}
	return DecodeBody(body, v)
}

// DecodeBody unmarshals an already unwrapped frame body.
func DecodeBody(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// DecodeEnvelope decodes a command frame body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := DecodeBody(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// DecodeResponse decodes a response frame body.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := DecodeBody(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FindFrame returns the body of the first complete frame in data and the
// bytes following it.
func FindFrame(data []byte) (body, rest []byte, ok bool) {
	start := bytes.Index(data, []byte(frameStart))
	if start < 0 {
		return nil, data, false
	}
	inner := data[start+len(frameStart):]
	end := bytes.Index(inner, []byte(frameEnd))
	if end < 0 {
		return nil, data, false
	}
	return inner[:end], inner[end+len(frameEnd):], true
}

func wrap(body []byte) []byte {
	out := make([]byte, 0, len(frameStart)+len(body)+len(frameEnd))
	out = append(out, frameStart...)
	out = append(out, body...)
	return append(out, frameEnd...)
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// asciiOnly rewrites every non-ASCII rune as a \u escape. Non-ASCII bytes
// can only appear inside JSON strings, so the rewrite is always valid.
func asciiOnly(body []byte) []byte {
	if isASCII(body) {
		return body
	}
	out := make([]byte, 0, len(body)+16)
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		body = body[size:]
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = appendEscape(out, hi)
			out = appendEscape(out, lo)
			continue
		}
		out = appendEscape(out, r)
	}
	return out
}

func appendEscape(out []byte, r rune) []byte {
	hex := strconv.FormatInt(int64(r), 16)
	out = append(out, `\u`...)
	for i := len(hex); i < 4; i++ {
		out = append(out, '0')
	}
	return append(out, hex...)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
