package dispatch

import (
	"github.com/lydakis/kittyrc/internal/protocol"
	"github.com/lydakis/kittyrc/internal/rc"
	"go.uber.org/zap"
)

// Deliver answers the asynchronous request asyncID. Requests that are no
// longer pending (cancelled, evicted, already answered or never seen) are
// dropped and Deliver returns false.
func (d *Dispatcher) Deliver(asyncID string, data any, errMsg string, origin rc.Origin) bool {
	registered, ok := d.tracker.Complete(asyncID)
	if !ok {
		d.log.Debug("dropping stale completion", zap.String("async_id", asyncID))
		return false
	}
	delete(d.waiting, asyncID)

	resp := &protocol.Response{OK: true, Data: data}
	if errMsg != "" {
		resp = protocol.Failure(errMsg)
	}

	log := d.log.With(zap.String("async_id", asyncID), zap.Time("registered", registered))
	switch {
	case origin.PeerID > 0:
		frame, err := protocol.EncodeResponse(resp)
		if err != nil {
			log.Error("encoding async response", zap.Error(err))
			return true
		}
		if err := d.sink.SendToPeer(origin.PeerID, frame); err != nil {
			log.Warn("delivering async response to peer", zap.Uint64("peer_id", origin.PeerID), zap.Error(err))
		}
	case origin.WindowID > 0:
		if err := d.sink.SendToWindow(origin.WindowID, resp); err != nil {
			log.Warn("delivering async response to window", zap.Uint64("window_id", origin.WindowID), zap.Error(err))
		}
	default:
		log.Warn("async response has no recipient")
	}
	return true
}
