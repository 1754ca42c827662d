package state

import "time"

var (
	// PulseInterval is how often the table is aged and advertised.
	PulseInterval = time.Second * 60
	// RecordRemainTime is how long a route survives without being refreshed.
	RecordRemainTime = 3 * PulseInterval
	// WaitTimeout bounds how long the main loop sleeps before checking the pulse.
	WaitTimeout = time.Second * 20

	DispatchQueueSize = 128
	SlowDispatch      = time.Millisecond * 4

	// PeerExpiryCheck is how often a listening channel drops peers that stopped advertising.
	PeerExpiryCheck = time.Second * 30
)
