package agent

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/openhydro/aquasim/internal/simerr"
	"github.com/openhydro/aquasim/internal/simtypes"
)

// window is the shared activation-window check every disturbance agent
// uses (spec section 4.4: "check activation window; within the window,
// compute a value and publish").
type window struct {
	start, end float64 // end == 0 means unbounded
}

func (w window) active(t float64) bool {
	if t < w.start {
		return false
	}
	return w.end == 0 || t < w.end
}

func newWindow(cfg Config) window {
	return window{start: cfg.Float("start_time", 0), end: cfg.Float("end_time", 0)}
}

// RainfallAgent publishes a constant value while its activation window is
// open.
type RainfallAgent struct {
	id      string
	win     window
	topic   string
	key     string
	value   float64
	publish func(topic string, msg simtypes.Message) error
}

func NewRainfallAgent(cfg Config, deps Deps) (Agent, error) {
	topic := cfg.Str("topic")
	if topic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".topic", Reason: "required"}
	}
	key := cfg.Str("value_key")
	if key == "" {
		key = "inflow_rate"
	}
	return &RainfallAgent{
		id: cfg.ID, win: newWindow(cfg), topic: topic, key: key,
		value: cfg.Float("value", 0), publish: deps.Bus.Publish,
	}, nil
}

func (a *RainfallAgent) ID() string { return a.id }

func (a *RainfallAgent) Run(currentTime float64) {
	if !a.win.active(currentTime) {
		return
	}
	a.publish(a.topic, simtypes.Message{a.key: a.value})
}

// DynamicRainfallAgent publishes a sinusoidal value within its window:
// base + amplitude*sin(2*pi*t/period).
type DynamicRainfallAgent struct {
	id        string
	win       window
	topic     string
	key       string
	base      float64
	amplitude float64
	period    float64
	publish   func(topic string, msg simtypes.Message) error
}

func NewDynamicRainfallAgent(cfg Config, deps Deps) (Agent, error) {
	topic := cfg.Str("topic")
	if topic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".topic", Reason: "required"}
	}
	key := cfg.Str("value_key")
	if key == "" {
		key = "inflow_rate"
	}
	period := cfg.Float("period", 3600)
	if period <= 0 {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".period", Reason: "must be positive"}
	}
	return &DynamicRainfallAgent{
		id: cfg.ID, win: newWindow(cfg), topic: topic, key: key,
		base: cfg.Float("base", 0), amplitude: cfg.Float("amplitude", 0), period: period,
		publish: deps.Bus.Publish,
	}, nil
}

func (a *DynamicRainfallAgent) ID() string { return a.id }

func (a *DynamicRainfallAgent) Run(currentTime float64) {
	if !a.win.active(currentTime) {
		return
	}
	v := a.base + a.amplitude*math.Sin(2*math.Pi*currentTime/a.period)
	a.publish(a.topic, simtypes.Message{a.key: v})
}

// WaterUseAgent publishes a constant abstraction (negative inflow, or
// an explicit outflow_rate key) while its window is open.
type WaterUseAgent struct {
	id      string
	win     window
	topic   string
	key     string
	value   float64
	publish func(topic string, msg simtypes.Message) error
}

func NewWaterUseAgent(cfg Config, deps Deps) (Agent, error) {
	topic := cfg.Str("topic")
	if topic == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".topic", Reason: "required"}
	}
	key := cfg.Str("value_key")
	if key == "" {
		key = "outflow_rate"
	}
	return &WaterUseAgent{
		id: cfg.ID, win: newWindow(cfg), topic: topic, key: key,
		value: cfg.Float("value", 0), publish: deps.Bus.Publish,
	}, nil
}

func (a *WaterUseAgent) ID() string { return a.id }

func (a *WaterUseAgent) Run(currentTime float64) {
	if !a.win.active(currentTime) {
		return
	}
	a.publish(a.topic, simtypes.Message{a.key: a.value})
}

// csvSample is one (time, value) row of a loaded inflow series.
type csvSample struct {
	time  float64
	value float64
}

// CsvInflowAgent publishes a value looked up from a CSV time series
// (spec section 7's supplemented data-source adapter; the core spec
// treats CSV reading as an external collaborator, but a usable scenario
// runner needs a concrete one). The file has a header row followed by
// "time,value" rows sorted ascending by time; Run publishes the most
// recent sample at or before currentTime, held constant between samples.
type CsvInflowAgent struct {
	id      string
	win     window
	topic   string
	key     string
	samples []csvSample
	publish func(topic string, msg simtypes.Message) error
}

func NewCsvInflowAgent(cfg Config, deps Deps) (Agent, error) {
	topic := cfg.Str("topic")
	path := cfg.Str("csv_path")
	if topic == "" || path == "" {
		return nil, &simerr.InvalidConfig{Path: cfg.ID, Reason: "topic and csv_path are required"}
	}
	key := cfg.Str("value_key")
	if key == "" {
		key = "inflow_rate"
	}
	samples, err := loadCSVSamples(path)
	if err != nil {
		return nil, &simerr.InvalidConfig{Path: cfg.ID + ".csv_path", Reason: err.Error()}
	}
	return &CsvInflowAgent{
		id: cfg.ID, win: newWindow(cfg), topic: topic, key: key,
		samples: samples, publish: deps.Bus.Publish,
	}, nil
}

func (a *CsvInflowAgent) ID() string { return a.id }

func (a *CsvInflowAgent) Run(currentTime float64) {
	if !a.win.active(currentTime) || len(a.samples) == 0 {
		return
	}
	v := sampleAt(a.samples, currentTime)
	a.publish(a.topic, simtypes.Message{a.key: v})
}

func loadCSVSamples(path string) ([]csvSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}

	var samples []csvSample
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		samples = append(samples, csvSample{time: t, value: v})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].time < samples[j].time })
	return samples, nil
}

// sampleAt returns the last sample whose time is <= t, or the first
// sample if t precedes all of them.
func sampleAt(samples []csvSample, t float64) float64 {
	idx := sort.Search(len(samples), func(i int) bool { return samples[i].time > t })
	if idx == 0 {
		return samples[0].value
	}
	return samples[idx-1].value
}
