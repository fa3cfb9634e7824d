package kinesis

import "fmt"

// vendor status codes shared by all Kinesis device families.  FTDI
// communication codes occupy 1..21, motor controller codes 32 and up.
const (
	CodeOK                    = 0
	CodeInvalidHandle         = 1
	CodeDeviceNotFound        = 2
	CodeDeviceNotOpened       = 3
	CodeIOError               = 4
	CodeInsufficientResources = 5
	CodeInvalidParameter      = 6
	CodeDeviceNotPresent      = 7
	CodeIncorrectDevice       = 8
	CodeNoDriverLoaded        = 16
	CodeFunctionNotAvailable  = 18
	CodeGenericFunctionFail   = 20
	CodeAlreadyOpen           = 32
	CodeNoResponse            = 33
	CodeNotImplemented        = 34
	CodeFaultReported         = 35
	CodeInvalidOperation      = 36
	CodeUnhomed               = 37
	CodeInvalidPosition       = 38
	CodeDisconnecting         = 41
	CodeInitializationFailure = 43
	CodeInvalidChannel        = 44
	CodeCannotHome            = 45
)

var errorText = map[int]string{
	CodeOK:                    "success",
	CodeInvalidHandle:         "the FTDI functions have not been initialized",
	CodeDeviceNotFound:        "the device could not be found",
	CodeDeviceNotOpened:       "the device must be opened before it can be accessed",
	CodeIOError:               "an I/O error has occurred",
	CodeInsufficientResources: "there are insufficient resources to run this application",
	CodeInvalidParameter:      "an invalid parameter has been supplied to the device",
	CodeDeviceNotPresent:      "the device is no longer present",
	CodeIncorrectDevice:       "the device detected does not match that expected",
	CodeNoDriverLoaded:        "the driver library could not be loaded",
	CodeFunctionNotAvailable:  "the function is not available for this device",
	CodeGenericFunctionFail:   "the function failed to complete successfully",
	CodeAlreadyOpen:           "attempt to open a device that was already open",
	CodeNoResponse:            "the device has stopped responding",
	CodeNotImplemented:        "this function has not been implemented",
	CodeFaultReported:         "the device has reported a fault",
	CodeInvalidOperation:      "the function could not be completed at this time",
	CodeUnhomed:               "the device cannot perform this function until it has been homed",
	CodeInvalidPosition:       "the requested position is outside the travel of the stage",
	CodeDisconnecting:         "the device is disconnecting",
	CodeInitializationFailure: "the device failed to initialize",
	CodeInvalidChannel:        "an invalid channel address was supplied",
	CodeCannotHome:            "this device does not support homing",
}

// ErrorText maps a raw vendor status code to a human-readable string for
// display by the host
func ErrorText(code int) string {
	if s, ok := errorText[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown error code %d", code)
}
