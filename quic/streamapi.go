package quic

import (
	"fmt"

	"github.com/kcenon/netquic/quicrecovery"
	"github.com/kcenon/netquic/quicstream"
	"github.com/kcenon/netquic/quicwire"
)

// OpenStream allocates a new locally-initiated stream, bidirectional if
// bidi is true, returning its stream ID. It fails with a LocalError if
// the connection isn't yet established or the peer's MAX_STREAMS limit
// for that directionality is currently exhausted.
func (c *Connection) OpenStream(bidi bool) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateEstablished {
		return 0, &LocalError{Op: "open stream", Err: fmt.Errorf("quic: connection not established")}
	}

	var s *quicstream.Stream
	var err error
	if bidi {
		s, err = c.streams.OpenBidi()
	} else {
		s, err = c.streams.OpenUni()
	}
	if err != nil {
		return 0, &LocalError{Op: "open stream", Err: err}
	}

	c.applyInitialStreamSendLimit(s.ID)
	return s.ID, nil
}

// WriteStream queues data for sending on streamID, closing the send side
// once fin is true and every queued byte has been flushed. A caller must
// keep calling WriteStream (or rely on GeneratePackets to flush
// previously-queued bytes) until the stream's send side reaches a
// terminal state; WriteStream itself never blocks.
func (c *Connection) WriteStream(streamID uint64, data []byte, fin bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.streams.Get(streamID)
	if !ok {
		return 0, &LocalError{Op: "write stream", Err: fmt.Errorf("quic: unknown stream %d", streamID)}
	}

	n, err := s.Write(data)
	if err != nil {
		return 0, &LocalError{Op: "write stream", Err: err}
	}
	if fin {
		if err := s.CloseSend(); err != nil {
			return n, &LocalError{Op: "write stream", Err: err}
		}
	}
	return n, nil
}

// ResetStream abandons streamID's send side immediately, queuing a
// RESET_STREAM frame carrying appErrorCode for the peer.
func (c *Connection) ResetStream(streamID uint64, appErrorCode uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.streams.Get(streamID)
	if !ok {
		return &LocalError{Op: "reset stream", Err: fmt.Errorf("quic: unknown stream %d", streamID)}
	}
	f, err := s.ResetSend(appErrorCode)
	if err != nil {
		return &LocalError{Op: "reset stream", Err: err}
	}
	c.pendingFrames[quicrecovery.SpaceApplication] = append(c.pendingFrames[quicrecovery.SpaceApplication], f)
	return nil
}

// StopSending asks the peer to abandon streamID's send side, queuing a
// STOP_SENDING frame carrying appErrorCode.
func (c *Connection) StopSending(streamID uint64, appErrorCode uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.streams.Get(streamID); !ok {
		return &LocalError{Op: "stop sending", Err: fmt.Errorf("quic: unknown stream %d", streamID)}
	}
	f := &quicwire.StopSendingFrame{StreamID: streamID, ErrorCode: appErrorCode}
	c.pendingFrames[quicrecovery.SpaceApplication] = append(c.pendingFrames[quicrecovery.SpaceApplication], f)
	return nil
}
