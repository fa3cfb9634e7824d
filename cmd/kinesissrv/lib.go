package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/apt"
	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/generichttp"
	"github.com/Vanwalleghem/mmdev-ThorlabsKinesis/kinesis"
)

// StageSetup holds the setup parameters for one stage channel
type StageSetup struct {
	// SerialNo is the controller serial number, e.g. "70000001"
	SerialNo string `yaml:"SerialNo"`

	// Channel is the motor channel; 0 or omitted for single-channel devices
	Channel int `yaml:"Channel"`

	// Endpoint is the URL stem the stage routes are served under,
	// ex. Endpoint="/omc/stage" produces routes of /omc/stage/pos, etc.
	Endpoint string `yaml:"Endpoint"`

	// Name optionally overrides the synthesized display name
	Name string `yaml:"Name"`

	// StageType is Linear or Rotational; empty uses the device default
	StageType string `yaml:"StageType"`

	// DeviceUnitsPerMillimeter scales linear stages; 0 uses the device default
	DeviceUnitsPerMillimeter float64 `yaml:"DeviceUnitsPerMillimeter"`

	// DeviceUnitsPerRevolution scales rotational stages; 0 uses the device default
	DeviceUnitsPerRevolution float64 `yaml:"DeviceUnitsPerRevolution"`

	// PollingIntervalMs is the background refresh period in milliseconds
	PollingIntervalMs int `yaml:"PollingIntervalMs"`

	// Addr is the serial port or host:port the controller is reachable at
	Addr string `yaml:"Addr"`

	// Serial determines if the connection is serial/RS232 (True) or TCP (False)
	Serial bool `yaml:"Serial"`

	// Bays is nonzero for benchtop controllers with addressable bays
	Bays int `yaml:"Bays"`

	// NoHome marks hardware without a home switch
	NoHome bool `yaml:"NoHome"`
}

// Config is a struct that holds the initialization parameters for the
// served stages.  It is to be populated by a yaml/unmarshal call.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock substitutes the in-memory simulator for real hardware
	Mock bool `yaml:"Mock"`

	// Stages is the list of stage channels to serve
	Stages []StageSetup `yaml:"Stages"`
}

func buildTransport(c Config) kinesis.Transport {
	if c.Mock {
		sim := kinesis.NewSimTransport()
		for _, s := range c.Stages {
			channels := s.Bays
			if channels == 0 {
				channels = 1
			}
			sim.AddDevice(s.SerialNo, kinesis.SimDevice{
				Model:    "SIM202",
				Channels: channels,
				NoHome:   s.NoHome,
			})
		}
		return sim
	}
	t := apt.New()
	for _, s := range c.Stages {
		t.Register(s.SerialNo, apt.AddrSpec{
			Addr:   s.Addr,
			Serial: s.Serial,
			Bays:   s.Bays,
			NoHome: s.NoHome,
		})
	}
	return t
}

// BuildMux constructs a chi router with a submux per configured stage.
// The router serves a special route, /endpoints, which returns a map of
// all stage routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)

	registry := kinesis.NewRegistry(buildTransport(c))
	supergraph := map[string][]string{}

	for _, s := range c.Stages {
		stage := kinesis.NewSingleAxisStage(registry, kinesis.StageConfig{
			SerialNo:                 s.SerialNo,
			Channel:                  s.Channel,
			Name:                     s.Name,
			StageType:                s.StageType,
			DeviceUnitsPerMillimeter: s.DeviceUnitsPerMillimeter,
			DeviceUnitsPerRevolution: s.DeviceUnitsPerRevolution,
			PollingInterval:          time.Duration(s.PollingIntervalMs) * time.Millisecond,
		})
		if err := stage.Initialize(); err != nil {
			log.Printf("initialize of %s failed: %v; serving uninitialized, POST to /initialize to retry", stage.Name(), err)
		}

		httper := kinesis.NewHTTPWrapper(stage)
		hndlS := generichttp.SubMuxSanitize(s.Endpoint)
		supergraph[hndlS] = httper.RT().Endpoints()

		r := chi.NewRouter()
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
