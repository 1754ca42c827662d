package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/encodeous/strand/link"
	"github.com/encodeous/strand/perf"
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

// StrandRouter owns the route-exchange channel and drives the distance-vector algorithm.
type StrandRouter struct {
	*state.State
	Link *link.Endpoint
}

func (r *StrandRouter) Init(s *state.State) error {
	s.Log.Debug("init router")
	r.State = s
	ep, err := link.Open(s.Context, "routing", s.Routing, s.RecordRemainTime, s.Log)
	if err != nil {
		return err
	}
	r.Link = ep
	ep.Serve(link.Handlers{
		OnPacket: func(p link.Packet) {
			s.Dispatch(func(s *state.State) error {
				return routerHandlePacket(s, p)
			})
		},
		OnClosed: func(c *link.Conn, err error) {
			channelClosed(s.Env, ep, c, err)
		},
	})

	if ep.Role == state.RoleListen {
		s.Env.RepeatTask(func(s *state.State) error {
			Get[*StrandRouter](s).Link.ExpirePeers()
			return nil
		}, state.PeerExpiryCheck)
	}
	return nil
}

func (r *StrandRouter) Cleanup(s *state.State) error {
	if r.Link == nil {
		return nil
	}
	err := r.Link.Close()
	r.Link = nil
	return err
}

// channelClosed runs on a reader goroutine. A dialled channel is the daemon's only link, so losing it stops
// the daemon.
func channelClosed(e *state.Env, ep *link.Endpoint, c *link.Conn, err error) {
	if ep.Role == state.RoleDial {
		e.Log.Error("channel closed by peer", "channel", ep.Name, "err", err)
		e.Cancel(fmt.Errorf("%s channel closed: %w", ep.Name, err))
		return
	}
	e.Log.Info("peer disconnected", "channel", ep.Name, "conn", c)
}

func routerHandlePacket(s *state.State, p link.Packet) error {
	r := Get[*StrandRouter](s)
	adv, err := protocol.DecodeAdvertisement(p.Data)
	if err != nil {
		perf.DecodeFailures.Add(1)
		s.Log.Warn("dropped malformed advertisement", "conn", p.From, "len", len(p.Data), "err", err)
		return nil
	}
	perf.AdvertisementsIn.Add(1)
	if state.DBG_log_messages {
		s.Log.Debug("received advertisement", "adv", adv)
	}
	r.Link.Associate(adv.Tag, p.From)
	HandleAdvertisement(&s.Table, r, adv, time.Now())
	return nil
}

func (r *StrandRouter) SendAdvertisement(adv protocol.Advertisement) {
	b, err := protocol.EncodeAdvertisement(adv)
	if err != nil {
		r.Env.Log.Error("failed to encode advertisement", "tag", adv.Tag, "err", err)
		return
	}
	err = r.Link.Send(adv.Tag, b)
	if errors.Is(err, link.ErrNoPeer) {
		r.Env.Log.Debug("no peer to advertise to", "tag", adv.Tag)
		return
	}
	if err != nil {
		perf.TransportFailures.Add(1)
		r.Env.Log.Warn("failed to send advertisement", "tag", adv.Tag, "err", err)
		return
	}
	perf.AdvertisementsOut.Add(1)
	perf.AdvertisedRouteCount.Add(float64(len(adv.Routes)))
	if state.DBG_log_messages {
		r.Env.Log.Debug("sent advertisement", "adv", adv)
	}
}

func (r *StrandRouter) Log(event RouterEvent, desc string, args ...any) {
	msg := fmt.Sprintf("%s %s", event.String(), desc)
	switch {
	case event >= ReservedAddress:
		r.Env.Log.Warn(msg, args...)
	case state.DBG_log_route_changes && event != RouteRefreshed:
		r.Env.Log.Info(msg, args...)
	default:
		r.Env.Log.Debug(msg, args...)
	}
	if event == RouteAdded || event == RouteImproved || event == RouteRefreshed {
		perf.RoutesAccepted.Add(1)
	}
}

// Pulse runs the advertisement cycle if at least one pulse interval has passed since the last run.
func (r *StrandRouter) Pulse(s *state.State, now time.Time) bool {
	if !pulseIfDue(s, r, now) {
		return false
	}
	dbgPrintRouteTable(s)
	return true
}

// pulseIfDue follows wall clock time, not the number of main loop wakes. A zero LastPulse is always due.
func pulseIfDue(s *state.State, r Router, now time.Time) bool {
	if now.Sub(s.LastPulse) < s.PulseInterval {
		return false
	}
	RunPulse(&s.Table, r, now, s.RecordRemainTime)
	s.LastPulse = now
	return true
}

func dbgPrintRouteTable(s *state.State) {
	if !state.DBG_log_route_table {
		return
	}
	if s.Table.Len() == 0 {
		s.Log.Info("--- route table (empty) ---")
		return
	}
	s.Log.Info("--- route table ---")
	for _, addr := range s.Table.Known() {
		e, _ := s.Table.Get(addr)
		s.Log.Info(fmt.Sprintf("%s -> %s", addr, e.NextHop), "cost", e.Cost, "from", e.LearnedFrom, "age", time.Since(e.LastSeen).Round(time.Second))
	}
}
