// Package quicflow implements connection- and stream-level flow control:
// credit accounting in both directions and the MAX_DATA/MAX_STREAM_DATA/
// DATA_BLOCKED/STREAM_DATA_BLOCKED frames that keep the two ends of a
// connection synchronized, per RFC 9000 §4.
package quicflow

import (
	"errors"

	"github.com/kcenon/netquic/quicwire"
)

// DefaultThreshold is the fraction of the receive window that must remain
// unconsumed before a credit update is withheld; crossing below it
// triggers a MAX_DATA or MAX_STREAM_DATA update.
const DefaultThreshold = 0.5

// ErrSendBlocked is returned by ConsumeSend when sending n more bytes
// would exceed the peer-advertised send limit.
var ErrSendBlocked = errors.New("quicflow: send blocked by flow control")

// window is the four-counter accounting shared by connection- and
// stream-level controllers: send_limit/bytes_sent govern what this side
// may send, receive_limit/bytes_consumed govern what credit this side
// has advertised to the peer.
type window struct {
	sendLimit     uint64
	bytesSent     uint64
	receiveLimit  uint64
	bytesConsumed uint64
	windowSize    uint64
	threshold     float64

	sendBlockedSent bool
}

func newWindow(windowSize uint64) window {
	return window{
		receiveLimit: windowSize,
		windowSize:   windowSize,
		threshold:    DefaultThreshold,
	}
}

// consumeSend records n bytes as sent, failing if that would exceed the
// send limit. On failure a BLOCKED frame can be requested via
// MaybeDataBlocked or MaybeStreamDataBlocked; success clears any pending
// blocked state.
func (w *window) consumeSend(n uint64) error {
	if w.bytesSent+n > w.sendLimit {
		return ErrSendBlocked
	}
	w.bytesSent += n
	w.sendBlockedSent = false
	return nil
}

// onSendLimitUpdated raises the send limit from a peer credit grant and
// clears the blocked flag so a future stall emits a fresh BLOCKED frame.
func (w *window) onSendLimitUpdated(limit uint64) {
	if limit > w.sendLimit {
		w.sendLimit = limit
	}
	w.sendBlockedSent = false
}

// shouldSendBlocked reports whether a BLOCKED frame is due: the sender
// is currently at its limit and hasn't already reported the stall.
func (w *window) shouldSendBlocked() bool {
	return !w.sendBlockedSent && w.bytesSent >= w.sendLimit
}

// markBlockedSent records that a BLOCKED frame was emitted for the
// current stall, suppressing duplicates until the limit changes.
func (w *window) markBlockedSent() {
	w.sendBlockedSent = true
}

// remaining returns how many more bytes may be sent before hitting the
// send limit, without consuming any of it.
func (w *window) remaining() uint64 {
	if w.bytesSent >= w.sendLimit {
		return 0
	}
	return w.sendLimit - w.bytesSent
}

// onDataConsumed records n bytes as delivered to the application.
func (w *window) onDataConsumed(n uint64) {
	w.bytesConsumed += n
}

// shouldUpdateLimit reports whether the remaining receive credit has
// dropped to or below (1-threshold) of the window, per RFC 9000 §4.1's
// guidance on when to send a flow control update.
func (w *window) shouldUpdateLimit() bool {
	remaining := w.receiveLimit - w.bytesConsumed
	return float64(remaining) <= (1-w.threshold)*float64(w.windowSize)
}

// raiseLimit advances the receive limit to bytesConsumed+windowSize and
// returns the new limit.
func (w *window) raiseLimit() uint64 {
	w.receiveLimit = w.bytesConsumed + w.windowSize
	return w.receiveLimit
}

// Controller is the connection-level flow controller: one window shared
// by every stream on the connection.
type Controller struct {
	window
}

// NewController returns a Controller with the given initial receive
// window. The send limit starts at zero until SetSendLimit is called
// with the peer's initial_max_data transport parameter.
func NewController(windowSize uint64) *Controller {
	return &Controller{window: newWindow(windowSize)}
}

// SetSendLimit installs the peer's initial_max_data value. Call once
// after transport parameters are negotiated.
func (c *Controller) SetSendLimit(limit uint64) {
	c.sendLimit = limit
}

// ConsumeSend accounts for n bytes about to be sent across the
// connection, failing with ErrSendBlocked if that would exceed the
// peer's advertised MAX_DATA.
func (c *Controller) ConsumeSend(n uint64) error {
	return c.consumeSend(n)
}

// OnMaxData applies a received MAX_DATA frame.
func (c *Controller) OnMaxData(f *quicwire.MaxDataFrame) {
	c.onSendLimitUpdated(f.MaximumData)
}

// MaybeDataBlocked returns a DATA_BLOCKED frame and true if the
// connection is currently send-blocked and hasn't already reported it.
func (c *Controller) MaybeDataBlocked() (*quicwire.DataBlockedFrame, bool) {
	if !c.shouldSendBlocked() {
		return nil, false
	}
	c.markBlockedSent()
	return &quicwire.DataBlockedFrame{DataLimit: c.sendLimit}, true
}

// RemainingSend reports how many more bytes may be sent across the
// connection before hitting the peer's advertised MAX_DATA, without
// consuming any of the budget.
func (c *Controller) RemainingSend() uint64 {
	return c.remaining()
}

// OnDataConsumed records n bytes of application data as consumed from
// the connection's receive window.
func (c *Controller) OnDataConsumed(n uint64) {
	c.onDataConsumed(n)
}

// MaybeMaxData returns a MAX_DATA frame and true if the receive window
// has crossed the update threshold, raising the advertised limit.
func (c *Controller) MaybeMaxData() (*quicwire.MaxDataFrame, bool) {
	if !c.shouldUpdateLimit() {
		return nil, false
	}
	return &quicwire.MaxDataFrame{MaximumData: c.raiseLimit()}, true
}

// StreamController is the per-stream flow controller sharing the same
// four-counter shape as Controller, scoped to one stream ID.
type StreamController struct {
	window
	StreamID uint64
}

// NewStreamController returns a StreamController for streamID with the
// given initial receive window.
func NewStreamController(streamID, windowSize uint64) *StreamController {
	return &StreamController{window: newWindow(windowSize), StreamID: streamID}
}

// SetSendLimit installs the peer's MAX_STREAM_DATA value for this
// stream's direction.
func (s *StreamController) SetSendLimit(limit uint64) {
	s.sendLimit = limit
}

// ConsumeSend accounts for n bytes about to be sent on this stream.
func (s *StreamController) ConsumeSend(n uint64) error {
	return s.consumeSend(n)
}

// OnMaxStreamData applies a received MAX_STREAM_DATA frame addressed to
// this stream.
func (s *StreamController) OnMaxStreamData(f *quicwire.MaxStreamDataFrame) {
	s.onSendLimitUpdated(f.MaximumStreamData)
}

// MaybeStreamDataBlocked returns a STREAM_DATA_BLOCKED frame and true if
// this stream is currently send-blocked and hasn't already reported it.
func (s *StreamController) MaybeStreamDataBlocked() (*quicwire.StreamDataBlockedFrame, bool) {
	if !s.shouldSendBlocked() {
		return nil, false
	}
	s.markBlockedSent()
	return &quicwire.StreamDataBlockedFrame{StreamID: s.StreamID, StreamDataLimit: s.sendLimit}, true
}

// RemainingSend reports how many more bytes may be sent on this stream
// before hitting the peer's advertised MAX_STREAM_DATA, without consuming
// any of the budget.
func (s *StreamController) RemainingSend() uint64 {
	return s.remaining()
}

// OnDataConsumed records n bytes of application data as read from this
// stream.
func (s *StreamController) OnDataConsumed(n uint64) {
	s.onDataConsumed(n)
}

// MaybeMaxStreamData returns a MAX_STREAM_DATA frame and true if this
// stream's receive window has crossed the update threshold.
func (s *StreamController) MaybeMaxStreamData() (*quicwire.MaxStreamDataFrame, bool) {
	if !s.shouldUpdateLimit() {
		return nil, false
	}
	return &quicwire.MaxStreamDataFrame{StreamID: s.StreamID, MaximumStreamData: s.raiseLimit()}, true
}
