// Package motion provides an HTTP interface to single-axis motion stages
package motion

import (
	"net/http"

	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/generichttp"
)

// Initializer is a type which may initialize a stage, engaging the
// control electronics
type Initializer interface {
	// Initialize the stage
	Initialize() error

	// Shutdown releases the stage, reversing Initialize
	Shutdown() error
}

// Mover describes an interface with position-related methods for a stage
type Mover interface {
	// GetPositionUm gets the current position in physical units
	GetPositionUm() (float64, error)

	// SetPositionUm moves the stage to an absolute position in physical units
	SetPositionUm(float64) error

	// Home homes the stage
	Home() error
}

// Enabler describes an interface with enable/disable methods for a stage
type Enabler interface {
	// Enable arms the channel
	Enable() error

	// Disable disarms the channel
	Disable() error

	// GetEnabled gets if the channel is armed
	GetEnabled() (bool, error)
}

// BusyQueryer is a type which can report whether the stage is in motion
type BusyQueryer interface {
	// Busy returns true while the stage is moving or homing
	Busy() bool
}

// Namer is a type which can report its display name
type Namer interface {
	// Name returns the display name of the device
	Name() string
}

// HTTPMove adds routes for the mover to the route table
func HTTPMove(iface Mover, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/pos"}] = generichttp.GetFloat(iface.GetPositionUm)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/pos"}] = generichttp.SetFloat(iface.SetPositionUm)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/home"}] = doErrOnly(iface.Home)
}

// HTTPEnable adds routes for the enabler to the route table
func HTTPEnable(iface Enabler, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/enabled"}] = generichttp.GetBool(iface.GetEnabled)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/enabled"}] = generichttp.SetBool(func(b bool) error {
		if b {
			return iface.Enable()
		}
		return iface.Disable()
	})
}

// HTTPInitialize adds routes for initialization to the route table
func HTTPInitialize(iface Initializer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/initialize"}] = doErrOnly(iface.Initialize)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/shutdown"}] = doErrOnly(iface.Shutdown)
}

// HTTPBusy adds a busy route to the route table
func HTTPBusy(iface BusyQueryer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/busy"}] = generichttp.GetBool(func() (bool, error) {
		return iface.Busy(), nil
	})
}

// HTTPName adds a name route to the route table
func HTTPName(iface Namer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/name"}] = generichttp.GetString(func() (string, error) {
		return iface.Name(), nil
	})
}

func doErrOnly(fcn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
