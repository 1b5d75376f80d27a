package conntrack

// Congestion implements the AIMD window used to pace stateful strategies
// (spec.md §4.6): slow start grows cwnd by 1 per ack, congestion avoidance
// grows it by 1/cwnd per ack, and a timeout halves both ssthresh and cwnd.
type Congestion struct {
	cwnd     float64
	ssthresh float64
}

const initialSsthresh = 64.0

// NewCongestion returns a Congestion starting in slow start with cwnd=1.
func NewCongestion() *Congestion {
	return &Congestion{cwnd: 1, ssthresh: initialSsthresh}
}

// OnAck advances the window on a successful response.
func (c *Congestion) OnAck() {
	if c.cwnd < c.ssthresh {
		c.cwnd++ // slow start
		return
	}
	c.cwnd += 1 / c.cwnd // congestion avoidance
}

// OnTimeout halves ssthresh and cwnd on a retransmission.
func (c *Congestion) OnTimeout() {
	c.ssthresh = c.cwnd / 2
	if c.ssthresh < 1 {
		c.ssthresh = 1
	}
	c.cwnd = c.ssthresh
}

// Window reports the current congestion window, the number of probes
// permitted in flight at once for this connection's strategy.
func (c *Congestion) Window() int {
	if c.cwnd < 1 {
		return 1
	}
	return int(c.cwnd)
}

// SlowStart reports whether the controller is still in the slow-start
// phase (cwnd below ssthresh).
func (c *Congestion) SlowStart() bool {
	return c.cwnd < c.ssthresh
}
