package protocol

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeCommandRoundTrip(t *testing.T) {
	original := &Envelope{
		Cmd:     "set-window-title",
		Version: Version{0, 26, 5},
		Payload: map[string]any{
			"title": "héllo ✓ 😀",
			"match": "id:1",
			"focus": true,
			"args":  []any{"vim", "notes.txt"},
		},
		NoResponse: true,
		AsyncID:    "abc123",
	}

	frame, err := EncodeCommand(original)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}

	var decoded Envelope
	if err := Decode(frame, &decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !reflect.DeepEqual(&decoded, original) {
		t.Fatalf("decoded = %#v, want %#v", decoded, *original)
	}
}

func TestEncodeCommandIsASCII(t *testing.T) {
	frame, err := EncodeCommand(&Envelope{
		Cmd:     "send-text",
		Version: Current,
		Payload: map[string]any{"data": "naïve 😀"},
	})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	for i, c := range frame {
		if c >= 0x80 {
			t.Fatalf("frame byte %d = %#x, want ASCII", i, c)
		}
	}
	if !bytes.Contains(frame, []byte(`naïve 😀`)) {
		t.Fatalf("frame = %q, want escaped non-ASCII", frame)
	}
}

func TestEncodeCommandFraming(t *testing.T) {
	frame, err := EncodeCommand(&Envelope{Cmd: "ping", Version: Version{1, 0, 0}})
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	want := "\x1bP@kitty-cmd" + `{"cmd":"ping","version":[1,0,0],"no_response":false}` + "\x1b\\"
	if string(frame) != want {
		t.Fatalf("frame = %q, want %q", frame, want)
	}
}

func TestEncodeCommandRejectsUnserializablePayload(t *testing.T) {
	_, err := EncodeCommand(&Envelope{Cmd: "ping", Payload: map[string]any{"ch": make(chan int)}})
	if err == nil {
		t.Fatal("EncodeCommand() error = nil, want encoding error")
	}
}

func TestEncodeResponseKeepsUTF8(t *testing.T) {
	frame, err := EncodeResponse(&Response{OK: true, Data: "ünïcode"})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	if !bytes.Contains(frame, []byte("ünïcode")) {
		t.Fatalf("frame = %q, want raw UTF-8 data", frame)
	}

	var resp Response
	if err := Decode(frame, &resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !resp.OK || resp.Data != "ünïcode" {
		t.Fatalf("response = %#v, want ok with data", resp)
	}
}

func TestEncodeResponseOmitsAbsentFields(t *testing.T) {
	frame, err := EncodeResponse(&Response{OK: true})
	if err != nil {
		t.Fatalf("EncodeResponse() error = %v", err)
	}
	body, _, ok := FindFrame(frame)
	if !ok {
		t.Fatal("FindFrame() ok = false, want true")
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %s, want %s", body, `{"ok":true}`)
	}
}

func TestDecodeMissingTerminator(t *testing.T) {
	var resp Response
	err := Decode([]byte("\x1bP@kitty-cmd{\"ok\":true}"), &resp)
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("Decode() error = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	var resp Response
	err := Decode([]byte("\x1bP@kitty-cmd{not json}\x1b\\"), &resp)
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("Decode() error = %v, want ErrMalformedPayload", err)
	}
}

func TestFindFrameSkipsSurroundingBytes(t *testing.T) {
	data := []byte("noise\x1bP@kitty-cmd{\"ok\":true}\x1b\\tail")
	body, rest, ok := FindFrame(data)
	if !ok {
		t.Fatal("FindFrame() ok = false, want true")
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body = %q", body)
	}
	if string(rest) != "tail" {
		t.Fatalf("rest = %q, want %q", rest, "tail")
	}
}

func TestCancelEnvelopeStripsPayload(t *testing.T) {
	env := &Envelope{
		Cmd:     "wait",
		Version: Current,
		Payload: map[string]any{"duration": "5s"},
		AsyncID: "abc123",
	}
	cancel := env.CancelEnvelope()
	if cancel.Payload != nil {
		t.Fatalf("cancel payload = %v, want nil", cancel.Payload)
	}
	if !cancel.CancelAsync || !cancel.NoResponse {
		t.Fatalf("cancel = %#v, want cancel_async and no_response", cancel)
	}
	if cancel.Cmd != "wait" || cancel.AsyncID != "abc123" {
		t.Fatalf("cancel = %#v, want same cmd and async id", cancel)
	}
	if env.Payload == nil {
		t.Fatal("original envelope payload was mutated")
	}

	frame, err := EncodeCommand(cancel)
	if err != nil {
		t.Fatalf("EncodeCommand() error = %v", err)
	}
	if strings.Contains(string(frame), "payload") {
		t.Fatalf("frame = %q, want no payload field", frame)
	}
}

func TestVersionCompatible(t *testing.T) {
	if (Version{1, 5, 0}).Compatible(Version{1, 4, 9}) {
		t.Fatal("client 1.5.0 accepted by host 1.4.9")
	}
	if !(Version{1, 4, 0}).Compatible(Version{1, 5, 0}) {
		t.Fatal("client 1.4.0 rejected by host 1.5.0")
	}
	if !(Version{1, 4, 9}).Compatible(Version{1, 4, 0}) {
		t.Fatal("patch component took part in the comparison")
	}
	if (Version{2, 0, 0}).Compatible(Version{1, 9, 0}) {
		t.Fatal("client 2.0.0 accepted by host 1.9.0")
	}
	if !(Version{0, 30, 0}).Compatible(Version{1, 0, 0}) {
		t.Fatal("client 0.30.0 rejected by host 1.0.0")
	}
}

func TestVersionUnmarshalPads(t *testing.T) {
	var env Envelope
	if err := DecodeBody([]byte(`{"cmd":"ls","version":[0,14]}`), &env); err != nil {
		t.Fatalf("DecodeBody() error = %v", err)
	}
	if env.Version != (Version{0, 14, 0}) {
		t.Fatalf("version = %v, want 0.14.0", env.Version)
	}
}
