package quic

import (
	"time"

	"github.com/kcenon/netquic/internal/errcode"
	"github.com/kcenon/netquic/quicwire"
)

// NextTimeout returns the next time OnTimeout should be called: whichever
// comes first among the loss-detection/PTO timer, the idle timeout, and
// (while closing or draining) the close/drain deadline. ok is false if no
// timer is armed.
func (c *Connection) NextTimeout() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var earliest time.Time
	found := false
	consider := func(t time.Time, ok bool) {
		if !ok || t.IsZero() {
			return
		}
		if !found || t.Before(earliest) {
			earliest, found = t, true
		}
	}

	consider(c.recovery.NextTimeout())
	consider(c.idleDeadline, !c.idleDeadline.IsZero())
	consider(c.closeDeadline, c.state == StateClosing)
	consider(c.drainDeadline, c.state == StateDraining)

	return earliest, found
}

// OnTimeout runs whichever timer fired: loss detection/PTO, the idle
// timeout, or the closing/draining deadline.
func (c *Connection) OnTimeout(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosing:
		if !now.Before(c.closeDeadline) {
			c.finishClose()
			return
		}
	case StateDraining:
		if !now.Before(c.drainDeadline) {
			c.finishClose()
			return
		}
		return
	case StateClosed:
		return
	}

	if !c.idleDeadline.IsZero() && !now.Before(c.idleDeadline) {
		c.closeErr = &TransportError{Code: errcode.ErrorCodeNoError, Reason: "idle timeout"}
		c.state = StateClosed
		c.emit(DisconnectedEvent{Err: nil})
		c.events.Close()
		return
	}

	lost, space, isPTO := c.recovery.OnTimeout()
	for _, pkt := range lost {
		for _, f := range pkt.Frames {
			switch f.(type) {
			case *quicwire.PaddingFrame, *quicwire.PingFrame, *quicwire.AckFrame:
				continue
			default:
				c.pendingFrames[space] = append(c.pendingFrames[space], f)
			}
		}
	}
	if isPTO {
		c.pendingFrames[space] = append(c.pendingFrames[space], &quicwire.PingFrame{})
	}

	c.idleDeadline = now.Add(c.cfg.MaxIdleTimeout)
}
