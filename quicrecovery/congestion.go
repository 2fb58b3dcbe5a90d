package quicrecovery

import "time"

// CongestionState is one of the NewReno congestion controller's states.
type CongestionState int

const (
	SlowStart CongestionState = iota
	CongestionAvoidance
	Recovery
)

func (s CongestionState) String() string {
	switch s {
	case SlowStart:
		return "slow-start"
	case CongestionAvoidance:
		return "congestion-avoidance"
	case Recovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// InitialWindowPackets is the number of datagrams the initial congestion
// window spans, per RFC 9002 §7.2.
const InitialWindowPackets = 10

// MinimumWindowPackets is the number of datagrams the minimum congestion
// window spans.
const MinimumWindowPackets = 2

// CongestionController implements NewReno congestion control (RFC 9002
// §7). cwnd is never allowed below 2*MaxDatagramSize.
type CongestionController struct {
	State             CongestionState
	CWnd              uint64
	SSThresh          uint64
	BytesInFlight     uint64
	MaxDatagramSize   uint64
	RecoveryStartTime time.Time

	haveRecoveryStart bool
}

// NewCongestionController returns a controller starting in SlowStart with
// the RFC 9002 default initial window.
func NewCongestionController(maxDatagramSize uint64) *CongestionController {
	return &CongestionController{
		State:           SlowStart,
		CWnd:            InitialWindowPackets * maxDatagramSize,
		SSThresh:        ^uint64(0),
		MaxDatagramSize: maxDatagramSize,
	}
}

func (c *CongestionController) minimumWindow() uint64 {
	return MinimumWindowPackets * c.MaxDatagramSize
}

// CanSend reports whether n additional bytes may be sent without
// exceeding the congestion window.
func (c *CongestionController) CanSend(n uint64) bool {
	return c.BytesInFlight+n <= c.CWnd
}

// OnPacketSent records bytes as newly in flight.
func (c *CongestionController) OnPacketSent(bytes uint64) {
	c.BytesInFlight += bytes
}

// OnPacketAcked folds one acknowledged packet into the congestion window,
// per RFC 9002 §7.3.1. sendTime is the acknowledged packet's send time.
func (c *CongestionController) OnPacketAcked(ackedBytes uint64, sendTime time.Time) {
	if c.BytesInFlight >= ackedBytes {
		c.BytesInFlight -= ackedBytes
	} else {
		c.BytesInFlight = 0
	}

	if c.inRecovery(sendTime) {
		return
	}

	switch c.State {
	case SlowStart:
		c.CWnd += ackedBytes
		if c.CWnd >= c.SSThresh {
			c.State = CongestionAvoidance
		}
	case CongestionAvoidance:
		increase := c.MaxDatagramSize * ackedBytes / c.CWnd
		if increase < 1 {
			increase = 1
		}
		c.CWnd += increase
	case Recovery:
		c.State = CongestionAvoidance
	}
}

// OnPacketLost removes a lost packet's bytes from bytes-in-flight.
func (c *CongestionController) OnPacketLost(bytes uint64) {
	if c.BytesInFlight >= bytes {
		c.BytesInFlight -= bytes
	} else {
		c.BytesInFlight = 0
	}
}

// inRecovery reports whether sendTime falls within the current recovery
// period (RFC 9002 §7.3.2's congestion-event-within-the-same-period
// check).
func (c *CongestionController) inRecovery(sendTime time.Time) bool {
	return c.haveRecoveryStart && !sendTime.After(c.RecoveryStartTime)
}

// OnCongestionEvent responds to a loss or ECN-CE signal triggered by a
// packet sent at sendTime. If sendTime falls within the current recovery
// period the event is ignored (already-signalled congestion).
func (c *CongestionController) OnCongestionEvent(sendTime, now time.Time) {
	if c.inRecovery(sendTime) {
		return
	}
	c.haveRecoveryStart = true
	c.RecoveryStartTime = now
	c.SSThresh = c.CWnd / 2
	if c.SSThresh < c.minimumWindow() {
		c.SSThresh = c.minimumWindow()
	}
	c.CWnd = c.SSThresh
	c.State = Recovery
}

// OnPersistentCongestion resets the congestion window to the minimum and
// returns to SlowStart, per RFC 9002 §7.6.2.
func (c *CongestionController) OnPersistentCongestion() {
	c.CWnd = c.minimumWindow()
	c.SSThresh = c.CWnd
	c.State = SlowStart
	c.haveRecoveryStart = false
}
