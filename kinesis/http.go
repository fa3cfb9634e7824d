package kinesis

import (
	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/generichttp"
	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/generichttp/motion"
)

// HTTPWrapper provides HTTP bindings on top of the underlying Go interface.
// Bind the route table to a router to serve it.
type HTTPWrapper struct {
	// Stage is the underlying stage that is wrapped
	Stage *SingleAxisStage

	// RouteTable maps method-path pairs to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(s *SingleAxisStage) HTTPWrapper {
	w := HTTPWrapper{Stage: s}
	rt := generichttp.RouteTable{}
	motion.HTTPMove(s, rt)
	motion.HTTPEnable(s, rt)
	motion.HTTPInitialize(s, rt)
	motion.HTTPBusy(s, rt)
	motion.HTTPName(s, rt)
	w.RouteTable = rt
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}
