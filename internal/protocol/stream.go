package protocol

import "bytes"

// maxPendingFrame bounds how much of an unterminated frame is buffered
// before the parser gives up on it.
const maxPendingFrame = 16 << 20

// StreamParser extracts frames from a terminal byte stream that also carries
// ordinary output. Frames and frame start markers may be split across Feed
// calls.
type StreamParser struct {
	pending []byte
}

// Feed consumes data and returns the non-frame bytes and the bodies of all
// frames completed by it.
func (p *StreamParser) Feed(data []byte) (passthrough []byte, frames [][]byte) {
	buf := data
	if len(p.pending) > 0 {
		buf = append(p.pending, data...)
		p.pending = nil
	}

	for len(buf) > 0 {
		start := bytes.Index(buf, []byte(frameStart))
		if start < 0 {
			keep := partialPrefix(buf, []byte(frameStart))
			passthrough = append(passthrough, buf[:len(buf)-keep]...)
			p.pending = append(p.pending, buf[len(buf)-keep:]...)
			return passthrough, frames
		}
		passthrough = append(passthrough, buf[:start]...)

		inner := buf[start+len(frameStart):]
		end := bytes.Index(inner, []byte(frameEnd))
		if end < 0 {
			if len(buf)-start > maxPendingFrame {
				passthrough = append(passthrough, buf[start:]...)
				return passthrough, frames
			}
			p.pending = append(p.pending, buf[start:]...)
			return passthrough, frames
		}
		frames = append(frames, append([]byte(nil), inner[:end]...))
		buf = inner[end+len(frameEnd):]
	}
	return passthrough, frames
}

// Pending reports how many bytes are buffered waiting for more input.
func (p *StreamParser) Pending() int {
	return len(p.pending)
}

// partialPrefix returns the length of the longest suffix of buf that is a
// proper prefix of marker.
func partialPrefix(buf, marker []byte) int {
	n := len(marker) - 1
	if n > len(buf) {
		n = len(buf)
	}
	for ; n > 0; n-- {
		if bytes.HasSuffix(buf, marker[:n]) {
			return n
		}
	}
	return 0
}
