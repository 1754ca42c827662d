package state

import (
	"fmt"
	"strings"
	"time"
)

// Address identifies a node in the closed 0-254 namespace.
type Address uint8

// Unknown is never stored in the route table. On the route-exchange channel it tags a keepalive/request,
// on the forwarding channel it means "no route".
const Unknown Address = 255

func (a Address) Valid() bool {
	return a != Unknown
}

func (a Address) String() string {
	if a == Unknown {
		return "*"
	}
	return fmt.Sprintf("%d", uint8(a))
}

type RouteEntry struct {
	Target  Address
	NextHop Address
	// Cost is the hop count to Target. 0 marks the entry as absent.
	Cost        uint8
	LearnedFrom Address
	LastSeen    time.Time
}

func (e RouteEntry) Present() bool {
	return e.Cost != 0
}

func (e RouteEntry) String() string {
	return fmt.Sprintf("(nh: %s, cost: %d, from: %s)", e.NextHop, e.Cost, e.LearnedFrom)
}

// RouteTable holds one entry per possible address. It must only be accessed from the main loop.
type RouteTable [256]RouteEntry

// UpsertDirectNeighbour records that addr was heard directly.
func (t *RouteTable) UpsertDirectNeighbour(addr Address, now time.Time) {
	if !addr.Valid() {
		return
	}
	t[addr] = RouteEntry{
		Target:      addr,
		NextHop:     addr,
		Cost:        1,
		LearnedFrom: addr,
		LastSeen:    now,
	}
}

// Relax installs the candidate route if the target is absent or the candidate is no worse than the
// current route. Ties go to the incoming route.
func (t *RouteTable) Relax(target Address, candidateCost uint8, via Address, now time.Time) bool {
	if !target.Valid() || !via.Valid() || candidateCost == 0 {
		return false
	}
	cur := t[target]
	if cur.Present() && candidateCost > cur.Cost {
		return false
	}
	t[target] = RouteEntry{
		Target:      target,
		NextHop:     via,
		Cost:        candidateCost,
		LearnedFrom: via,
		LastSeen:    now,
	}
	return true
}

// SweepExpired clears every entry that has not been refreshed within recordRemainTime and returns the
// addresses that were dropped.
func (t *RouteTable) SweepExpired(now time.Time, recordRemainTime time.Duration) []Address {
	var dropped []Address
	for i := range t {
		if !t[i].Present() {
			continue
		}
		if now.After(t[i].LastSeen.Add(recordRemainTime)) {
			t[i] = RouteEntry{}
			dropped = append(dropped, Address(i))
		}
	}
	return dropped
}

// SnapshotForNeighbour returns, in address order, every known route not learned from exclude.
func (t *RouteTable) SnapshotForNeighbour(exclude Address) []RouteEntry {
	var out []RouteEntry
	for _, e := range t {
		if e.Present() && e.LearnedFrom != exclude {
			out = append(out, e)
		}
	}
	return out
}

func (t *RouteTable) Get(addr Address) (RouteEntry, bool) {
	e := t[addr]
	return e, e.Present()
}

// Known lists the addresses that currently have a route, in address order.
func (t *RouteTable) Known() []Address {
	var out []Address
	for i, e := range t {
		if e.Present() {
			out = append(out, Address(i))
		}
	}
	return out
}

func (t *RouteTable) Len() int {
	n := 0
	for _, e := range t {
		if e.Present() {
			n++
		}
	}
	return n
}

func (t *RouteTable) String() string {
	rt := make([]string, 0)
	for _, e := range t {
		if e.Present() {
			rt = append(rt, fmt.Sprintf("%s via %s", e.Target, e))
		}
	}
	return strings.Join(rt, "\n")
}
