package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/lydakis/kittyrc/internal/rc"
	"github.com/spf13/pflag"
)

// sendTextChunk is how much of stdin goes into one envelope.
const sendTextChunk = 4096

// The data field is "text:" followed by text given on the command line, or
// "base64:" followed by raw stdin bytes. Chunk boundaries may split a rune,
// so stdin never travels as a JSON string.
const (
	textPrefix   = "text:"
	base64Prefix = "base64:"
)

var sendText = &rc.Descriptor{
	Name:       "send-text",
	ShortDesc:  "Send arbitrary text to specified windows",
	ArgSpec:    "[TEXT ...]",
	NoResponse: true,
	Options: func(fs *pflag.FlagSet) {
		matchOption(fs)
		fs.Bool("stdin", false, "Read the text to send from stdin, in addition to any arguments.")
	},
	BuildPayload: func(req rc.PayloadRequest) (any, error) {
		base := basePayload(req)
		text := strings.Join(req.Args, " ")
		fromStdin, _ := req.Flags.GetBool("stdin")
		if !fromStdin {
			base["data"] = textPrefix + text
			return base, nil
		}
		return rc.Chunks(func(yield func(any) bool) {
			chunk := func(data string) map[string]any {
				p := map[string]any{"data": data}
				for k, v := range base {
					p[k] = v
				}
				return p
			}
			if text != "" && !yield(chunk(textPrefix+text)) {
				return
			}
			buf := make([]byte, sendTextChunk)
			for {
				n, err := req.Stdin.Read(buf)
				if n > 0 && !yield(chunk(base64Prefix+base64.StdEncoding.EncodeToString(buf[:n]))) {
					return
				}
				if err != nil {
					// io.EOF ends the stream; any other error truncates it.
					return
				}
			}
		}), nil
	},
	Execute: func(ctx context.Context, call *rc.Call) (rc.Result, error) {
		data, err := decodeSendData(call.Payload.String("data"))
		if err != nil {
			return rc.Result{}, err
		}
		if data == "" {
			return rc.Respond(nil), nil
		}
		if err := call.Boss.SendText(call.Payload.String("match"), data, call.Origin); err != nil {
			return rc.Result{}, err
		}
		return rc.Respond(nil), nil
	},
}

func decodeSendData(data string) (string, error) {
	switch {
	case strings.HasPrefix(data, base64Prefix):
		raw, err := base64.StdEncoding.DecodeString(data[len(base64Prefix):])
		if err != nil {
			return "", fmt.Errorf("invalid base64 data: %w", err)
		}
		return string(raw), nil
	case strings.HasPrefix(data, textPrefix):
		return data[len(textPrefix):], nil
	default:
		return data, nil
	}
}
