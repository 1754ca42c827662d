package core

import (
	"time"

	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteImproved
	RouteRefreshed
	StaleRouteDropped
	NeighbourHeard
	KeepaliveReceived
)

// warn events

const (
	ReservedAddress RouterEvent = iota + 1000
	CostOverflow
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "ROUTE_ADDED"
	case RouteImproved:
		return "ROUTE_IMPROVED"
	case RouteRefreshed:
		return "ROUTE_REFRESHED"
	case StaleRouteDropped:
		return "STALE_ROUTE_DROPPED"
	case NeighbourHeard:
		return "NEIGHBOUR_HEARD"
	case KeepaliveReceived:
		return "KEEPALIVE_RECEIVED"
	case ReservedAddress:
		return "RESERVED_ADDRESS"
	case CostOverflow:
		return "COST_OVERFLOW"
	}
	return "UNKNOWN_EVENT"
}

// Router is an interface that defines the underlying router operations
type Router interface {
	SendAdvertisement(adv protocol.Advertisement)
	Log(event RouterEvent, desc string, args ...any)
}

// HandleAdvertisement merges a route-exchange message into the table. Route updates are one-way, nothing is
// sent back to the sender.
func HandleAdvertisement(t *state.RouteTable, r Router, adv protocol.Advertisement, now time.Time) {
	if !adv.Tag.Valid() {
		// nobody can be reached through an unknown sender
		r.Log(KeepaliveReceived, "keepalive from unknown sender", "routes", len(adv.Routes))
		return
	}

	// hearing anything from a node makes it a one hop neighbour
	_, known := t.Get(adv.Tag)
	t.UpsertDirectNeighbour(adv.Tag, now)
	if !known {
		r.Log(NeighbourHeard, "new neighbour", "neigh", adv.Tag)
	}

	if adv.IsKeepalive() {
		return
	}

	for _, route := range adv.Routes {
		if !route.Address.Valid() {
			r.Log(ReservedAddress, "ignored route to reserved address", "from", adv.Tag)
			continue
		}
		if route.Cost == ^uint8(0) {
			r.Log(CostOverflow, "ignored route with maximum cost", "from", adv.Tag, "target", route.Address)
			continue
		}
		cand := route.Cost + 1
		old, hadRoute := t.Get(route.Address)
		if !t.Relax(route.Address, cand, adv.Tag, now) {
			continue
		}
		switch {
		case !hadRoute:
			r.Log(RouteAdded, "route added", "target", route.Address, "nh", adv.Tag, "cost", cand)
		case cand < old.Cost || old.NextHop != adv.Tag:
			r.Log(RouteImproved, "route improved", "target", route.Address, "nh", adv.Tag, "cost", cand, "old", old)
		default:
			r.Log(RouteRefreshed, "route refreshed", "target", route.Address, "nh", adv.Tag, "cost", cand)
		}
	}
}

// RunPulse ages out stale routes, then sends every known address the routes it did not teach us, followed
// by a keepalive/request.
func RunPulse(t *state.RouteTable, r Router, now time.Time, recordRemainTime time.Duration) {
	for _, addr := range t.SweepExpired(now, recordRemainTime) {
		r.Log(StaleRouteDropped, "stale route dropped", "target", addr)
	}

	for _, neigh := range t.Known() {
		snap := t.SnapshotForNeighbour(neigh)
		if len(snap) == 0 {
			continue
		}
		adv := protocol.Advertisement{
			Tag:    neigh,
			Routes: make([]protocol.Route, 0, len(snap)),
		}
		for _, e := range snap {
			adv.Routes = append(adv.Routes, protocol.Route{
				Address: e.Target,
				Cost:    e.Cost,
			})
		}
		r.SendAdvertisement(adv)
	}

	r.SendAdvertisement(protocol.Advertisement{Tag: state.Unknown})
}

// ResolveNextHop returns the neighbour to forward towards dst, or state.Unknown if there is no route.
func ResolveNextHop(t *state.RouteTable, dst state.Address) state.Address {
	if e, ok := t.Get(dst); ok {
		return e.NextHop
	}
	return state.Unknown
}
