package core

import (
	"github.com/encodeous/strand/link"
	"github.com/encodeous/strand/perf"
	"github.com/encodeous/strand/protocol"
	"github.com/encodeous/strand/state"
)

// Forwarder answers next hop queries from the data plane.
type Forwarder struct {
	Link *link.Endpoint
}

func (f *Forwarder) Init(s *state.State) error {
	s.Log.Debug("init forwarder")
	ep, err := link.Open(s.Context, "forward", s.Forward, s.RecordRemainTime, s.Log)
	if err != nil {
		return err
	}
	f.Link = ep
	ep.Serve(link.Handlers{
		OnPacket: func(p link.Packet) {
			s.Dispatch(func(s *state.State) error {
				return forwardHandleQuery(s, p)
			})
		},
		OnClosed: func(c *link.Conn, err error) {
			channelClosed(s.Env, ep, c, err)
		},
	})
	return nil
}

func (f *Forwarder) Cleanup(s *state.State) error {
	if f.Link == nil {
		return nil
	}
	err := f.Link.Close()
	f.Link = nil
	return err
}

func forwardHandleQuery(s *state.State, p link.Packet) error {
	dst, err := protocol.DecodeQuery(p.Data)
	if err != nil {
		perf.DecodeFailures.Add(1)
		s.Log.Warn("dropped malformed forwarding query", "conn", p.From, "len", len(p.Data), "err", err)
		return nil
	}
	perf.ForwardQueries.Add(1)
	nh := ResolveNextHop(&s.Table, dst)
	if nh == state.Unknown {
		perf.ForwardMisses.Add(1)
	}
	err = p.From.WriteMsg(protocol.EncodeReply(nh))
	if err != nil {
		perf.TransportFailures.Add(1)
		s.Log.Warn("failed to reply to forwarding query", "dst", dst, "err", err)
		return nil
	}
	s.Log.Debug("handled forwarding of packet", "dst", dst, "nh", nh)
	return nil
}
