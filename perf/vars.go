package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	AdvertisementsIn     = metric.NewCounter("10s1s")
	AdvertisementsOut    = metric.NewCounter("10s1s")
	RoutesAccepted       = metric.NewCounter("10s1s")
	ForwardQueries       = metric.NewCounter("10s1s")
	ForwardMisses        = metric.NewCounter("10s1s")
	DecodeFailures       = metric.NewCounter("10s1s")
	TransportFailures    = metric.NewCounter("10s1s")
	AdvertisedRouteCount = metric.NewHistogram("10m10s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("strand:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("strand:AdvertisementsIn/s", AdvertisementsIn)
	expvar.Publish("strand:AdvertisementsOut/s", AdvertisementsOut)
	expvar.Publish("strand:RoutesAccepted/s", RoutesAccepted)
	expvar.Publish("strand:ForwardQueries/s", ForwardQueries)
	expvar.Publish("strand:ForwardMisses/s", ForwardMisses)
	expvar.Publish("strand:DecodeFailures/s", DecodeFailures)
	expvar.Publish("strand:TransportFailures/s", TransportFailures)
	expvar.Publish("strand:AdvertisedRoutes", AdvertisedRouteCount)
}
