package protocol

import (
	"errors"
	"fmt"

	"github.com/encodeous/strand/state"
)

// Route-exchange layout:
// [0]=tag
// [1]=count
// then each route: [address][cost] => 2 bytes
// zero padded so the whole message, tag included, is a multiple of 4 bytes.
// Some senders pad from byte 1 onward instead, which can add one byte, so decoding accepts either.
//
// Forwarding layout: a one byte request holding the destination, a one byte reply holding the next hop
// (state.Unknown when there is no route).

const (
	headerSize = 2
	routeSize  = 2
	alignment  = 4

	MaxRoutes            = 255
	MaxAdvertisementSize = headerSize + routeSize*MaxRoutes // already aligned
	// MaxDecodeSize is the largest message accepted from a peer.
	MaxDecodeSize = MaxAdvertisementSize + alignment
)

var (
	ErrTruncated = errors.New("message truncated")
	ErrOversized = errors.New("message too large")
)

type Route struct {
	Address state.Address
	// Cost is the sender's own hop count, not yet incremented by the receiver.
	Cost uint8
}

type Advertisement struct {
	// Tag is the sender on inbound messages, and the neighbour whose learned routes were left out on
	// outbound ones. state.Unknown marks a keepalive/request.
	Tag    state.Address
	Routes []Route
}

func (a Advertisement) IsKeepalive() bool {
	return len(a.Routes) == 0
}

func (a Advertisement) String() string {
	return fmt.Sprintf("(tag: %s, routes: %v)", a.Tag, a.Routes)
}

// EncodedLen is the padded size of a message carrying n routes.
func EncodedLen(n int) int {
	l := headerSize + routeSize*n
	return (l + alignment - 1) / alignment * alignment
}

func EncodeAdvertisement(adv Advertisement) ([]byte, error) {
	if len(adv.Routes) > MaxRoutes {
		return nil, fmt.Errorf("%w: %d routes", ErrOversized, len(adv.Routes))
	}
	buf := make([]byte, EncodedLen(len(adv.Routes)))
	buf[0] = byte(adv.Tag)
	buf[1] = byte(len(adv.Routes))
	off := headerSize
	for _, r := range adv.Routes {
		buf[off] = byte(r.Address)
		buf[off+1] = r.Cost
		off += routeSize
	}
	return buf, nil
}

// DecodeAdvertisement rejects messages that are shorter than their count says. Trailing padding is not
// checked.
func DecodeAdvertisement(b []byte) (Advertisement, error) {
	if len(b) < headerSize {
		return Advertisement{}, fmt.Errorf("%w: %d byte header", ErrTruncated, len(b))
	}
	if len(b) > MaxDecodeSize {
		return Advertisement{}, fmt.Errorf("%w: %d bytes", ErrOversized, len(b))
	}
	adv := Advertisement{Tag: state.Address(b[0])}
	count := int(b[1])
	exp := headerSize + routeSize*count
	if len(b) < exp {
		return Advertisement{}, fmt.Errorf("%w: have %d bytes, %d routes need %d", ErrTruncated, len(b), count, exp)
	}
	if count == 0 {
		return adv, nil
	}
	adv.Routes = make([]Route, 0, count)
	off := headerSize
	for i := 0; i < count; i++ {
		adv.Routes = append(adv.Routes, Route{
			Address: state.Address(b[off]),
			Cost:    b[off+1],
		})
		off += routeSize
	}
	return adv, nil
}

func EncodeQuery(dst state.Address) []byte {
	return []byte{byte(dst)}
}

func DecodeQuery(b []byte) (state.Address, error) {
	return decodeSingle(b)
}

func EncodeReply(nh state.Address) []byte {
	return []byte{byte(nh)}
}

func DecodeReply(b []byte) (state.Address, error) {
	return decodeSingle(b)
}

func decodeSingle(b []byte) (state.Address, error) {
	switch {
	case len(b) == 0:
		return state.Unknown, ErrTruncated
	case len(b) > 1:
		return state.Unknown, fmt.Errorf("%w: %d bytes", ErrOversized, len(b))
	}
	return state.Address(b[0]), nil
}
