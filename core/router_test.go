package core

import (
	"testing"
	"time"

	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(a uint8) state.Address {
	return state.Address(a)
}

func route(t *testing.T, tbl *state.RouteTable, a uint8) state.RouteEntry {
	t.Helper()
	e, ok := tbl.Get(addr(a))
	require.True(t, ok, "expected a route to %d", a)
	return e
}

func TestLearnFromNewNeighbour(t *testing.T) {
	// empty table, 7 tells us about 3 and 9
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 1, 9, 4), t0)

	e := route(t, &tbl, 7)
	assert.Equal(t, uint8(1), e.Cost)
	assert.Equal(t, addr(7), e.NextHop)
	assert.Equal(t, addr(7), e.LearnedFrom)

	e = route(t, &tbl, 3)
	assert.Equal(t, uint8(2), e.Cost)
	assert.Equal(t, addr(7), e.NextHop)

	e = route(t, &tbl, 9)
	assert.Equal(t, uint8(5), e.Cost)
	assert.Equal(t, addr(7), e.NextHop)

	assert.Equal(t, 3, tbl.Len())
	assert.Empty(t, h.GetActions(), "advertisements are never answered")
}

func TestCheaperRouteReplaces(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	tbl.Relax(3, 2, 7, t0)

	HandleAdvertisement(&tbl, h, Adv(12, 3, 0), t0.Add(time.Second))
	e := route(t, &tbl, 3)
	assert.Equal(t, uint8(1), e.Cost)
	assert.Equal(t, addr(12), e.NextHop)
	assert.Equal(t, addr(12), e.LearnedFrom)
	assert.Equal(t, t0.Add(time.Second), e.LastSeen)
}

func TestPulseDropsStaleNeighbour(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	now := t0.Add(200 * time.Second)
	tbl.UpsertDirectNeighbour(5, t0)

	RunPulse(&tbl, h, now, 180*time.Second)
	_, ok := tbl.Get(5)
	assert.False(t, ok)
	assert.Equal(t, []RouterEvent{StaleRouteDropped}, h.GetLogs())
}

func TestResolveUnknownReplies255(t *testing.T) {
	var tbl state.RouteTable
	assert.Equal(t, state.Unknown, ResolveNextHop(&tbl, 200))
	assert.Equal(t, []byte{255}, protocol.EncodeReply(ResolveNextHop(&tbl, 200)))
}

func TestPulseSplitHorizon(t *testing.T) {
	// address 1 was learned from 9, address 2 from 1
	h := &RouterHarness{}
	var tbl state.RouteTable
	tbl.Relax(1, 2, 9, t0)
	tbl.Relax(2, 2, 1, t0)

	RunPulse(&tbl, h, t0, time.Hour)
	assert.Equal(t, []protocol.Advertisement{
		// split horizon towards 1 leaves out 2, which 1 taught us
		Adv(1, 1, 2),
		// nothing was learned from 2
		Adv(2, 1, 2, 2, 2),
		Adv(255),
	}, h.GetActions().Advertisements())
}

func TestMergeFromNeighbour(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable

	HandleAdvertisement(&tbl, h, Adv(7), t0)
	assert.Equal(t, []RouterEvent{NeighbourHeard}, h.GetLogs())

	HandleAdvertisement(&tbl, h, Adv(7, 3, 1), t0)
	assert.Equal(t, []RouterEvent{RouteAdded}, h.GetLogs())

	HandleAdvertisement(&tbl, h, Adv(7, 3, 1), t0.Add(time.Second))
	assert.Equal(t, []RouterEvent{RouteRefreshed}, h.GetLogs())
	assert.Equal(t, t0.Add(time.Second), route(t, &tbl, 3).LastSeen)

	HandleAdvertisement(&tbl, h, Adv(8, 3, 0), t0)
	assert.Equal(t, []RouterEvent{NeighbourHeard, RouteImproved}, h.GetLogs())

	// worse routes are dropped silently
	HandleAdvertisement(&tbl, h, Adv(7, 3, 5), t0)
	assert.Empty(t, h.GetLogs())
	assert.Equal(t, addr(8), route(t, &tbl, 3).NextHop)
}

func TestMergeKeepalive(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(255), t0)
	HandleAdvertisement(&tbl, h, Adv(255, 3, 1), t0)
	assert.Zero(t, tbl.Len())
	assert.Equal(t, []RouterEvent{KeepaliveReceived, KeepaliveReceived}, h.GetLogs())
}

func TestMergeRejectsReserved(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 255, 1, 4, 255, 5, 254), t0)

	assert.Equal(t, []state.Address{5, 7}, tbl.Known())
	assert.Equal(t, uint8(255), route(t, &tbl, 5).Cost)
	assert.Equal(t, []RouterEvent{NeighbourHeard, ReservedAddress, CostOverflow, RouteAdded}, h.GetLogs())
}

func TestMergeRepeatedAddress(t *testing.T) {
	// a malformed message repeating an address is applied pair by pair
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 4, 3, 2, 3, 6), t0)
	assert.Equal(t, uint8(3), route(t, &tbl, 3).Cost)
}

func TestMergeOverridesSelfRoute(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 1), t0)
	HandleAdvertisement(&tbl, h, Adv(3), t0)
	e := route(t, &tbl, 3)
	assert.Equal(t, uint8(1), e.Cost)
	assert.Equal(t, addr(3), e.NextHop)
	assert.Equal(t, addr(3), e.LearnedFrom)
}

func TestPulseEmptyTable(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	RunPulse(&tbl, h, t0, time.Minute)
	assert.Equal(t, []protocol.Advertisement{Adv(255)}, h.GetActions().Advertisements())
}

func TestPulseSkipsEmptySnapshots(t *testing.T) {
	// a lone neighbour taught us everything we know, so there is nothing to tell it
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 1, 9, 4), t0)
	h.GetLogs()

	RunPulse(&tbl, h, t0, time.Minute)
	a := h.GetActions()
	a.AssertNotContains(t, "SEND", Adv(7))
	assert.Equal(t, []protocol.Advertisement{
		Adv(3, 3, 2, 7, 1, 9, 5),
		Adv(9, 3, 2, 7, 1, 9, 5),
		Adv(255),
	}, a.Advertisements())
}

func TestPulseSweepsBeforeAdvertising(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 1), t0)
	HandleAdvertisement(&tbl, h, Adv(8), t0.Add(time.Minute))
	h.GetLogs()

	RunPulse(&tbl, h, t0.Add(3*time.Minute+time.Second), 3*time.Minute)
	a := h.GetActions()
	assert.Equal(t, []protocol.Advertisement{Adv(255)}, a.Advertisements())
	assert.Equal(t, []state.Address{8}, tbl.Known())
}

func TestSplitHorizonProperty(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	for n := uint8(1); n < 40; n += 3 {
		HandleAdvertisement(&tbl, h, Adv(n, n+1, n%4, n+2, n%5, 100+n, n), t0)
	}
	RunPulse(&tbl, h, t0, time.Hour)
	for _, adv := range h.GetActions().Advertisements() {
		for _, r := range adv.Routes {
			e := route(t, &tbl, uint8(r.Address))
			assert.NotEqual(t, adv.Tag, e.LearnedFrom, "route to %s sent back to %s", r.Address, adv.Tag)
			assert.Equal(t, e.Cost, r.Cost)
		}
	}
}

func TestResolveNextHop(t *testing.T) {
	h := &RouterHarness{}
	var tbl state.RouteTable
	HandleAdvertisement(&tbl, h, Adv(7, 3, 1), t0)
	assert.Equal(t, addr(7), ResolveNextHop(&tbl, 3))
	assert.Equal(t, addr(7), ResolveNextHop(&tbl, 7))
	assert.Equal(t, state.Unknown, ResolveNextHop(&tbl, 4))
	assert.Equal(t, state.Unknown, ResolveNextHop(&tbl, state.Unknown))
}

func TestRouterEventString(t *testing.T) {
	assert.Equal(t, "STALE_ROUTE_DROPPED", StaleRouteDropped.String())
	assert.Equal(t, "COST_OVERFLOW", CostOverflow.String())
	assert.Equal(t, "UNKNOWN_EVENT", RouterEvent(42).String())
}

func TestPulseWaitsForInterval(t *testing.T) {
	h := &RouterHarness{}
	s := &state.State{Env: &state.Env{LocalCfg: state.LocalCfg{
		PulseInterval:    time.Minute,
		RecordRemainTime: 3 * time.Minute,
	}}}

	// first wake after startup
	assert.True(t, pulseIfDue(s, h, t0))
	assert.Equal(t, t0, s.LastPulse)
	assert.Equal(t, []protocol.Advertisement{Adv(255)}, h.GetActions().Advertisements())

	assert.False(t, pulseIfDue(s, h, t0.Add(time.Minute-time.Millisecond)))
	assert.Equal(t, t0, s.LastPulse)
	assert.Empty(t, h.GetActions())

	assert.True(t, pulseIfDue(s, h, t0.Add(time.Minute)))
	assert.Equal(t, t0.Add(time.Minute), s.LastPulse)
	assert.Equal(t, []protocol.Advertisement{Adv(255)}, h.GetActions().Advertisements())

	// waking again right away does nothing
	assert.False(t, pulseIfDue(s, h, t0.Add(time.Minute+time.Second)))
	assert.Empty(t, h.GetActions())
}
