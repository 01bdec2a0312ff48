package event

import (
	"encoding/json"
	"time"

	"github.com/ccollicutt/gcscan/pkg/jvm"
)

// Event is one recognized log record. Events are created by line matchers
// and are not modified once appended to a run.
type Event struct {
	Kind Kind `json:"kind"`

	// Timestamp is milliseconds since JVM start. HasTimestamp is false for
	// header and footer records that carry no time prefix; the run
	// aggregator stamps those with the last timestamp seen.
	Timestamp    int64 `json:"timestamp_ms"`
	HasTimestamp bool  `json:"-"`

	// Duration is the pause or phase length. It is absent, not zero, when
	// the record was cut off before the duration could be read.
	Duration Duration `json:"duration_us"`

	Regions []Region `json:"regions,omitempty"`

	Trigger Trigger `json:"trigger"`

	// TriggerText is the raw annotation when Trigger is TriggerUnknown.
	TriggerText string `json:"trigger_text,omitempty"`

	CPU   *CPUTimes `json:"cpu,omitempty"`
	Flags Flags     `json:"flags,omitempty"`

	// Partial is set when the matcher recognized the record but could not
	// read every field it expected.
	Partial bool `json:"partial,omitempty"`

	Detail Detail   `json:"detail,omitempty"`
	Line   LineSpan `json:"line"`
}

// Region returns the snapshot for the named region.
func (e *Event) Region(name RegionName) (Region, bool) {
	for _, r := range e.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// End returns the timestamp in milliseconds at which the event finished,
// or the start timestamp when the duration is absent.
func (e *Event) End() int64 {
	if !e.Duration.Valid {
		return e.Timestamp
	}
	return e.Timestamp + e.Duration.Micros/1000
}

// Duration is a length in microseconds with an explicit absent state.
type Duration struct {
	Micros int64
	Valid  bool
}

// Micros returns a present duration of v microseconds.
func Micros(v int64) Duration {
	return Duration{Micros: v, Valid: true}
}

// Std converts the duration to a time.Duration. Absent durations are zero.
func (d Duration) Std() time.Duration {
	if !d.Valid {
		return 0
	}
	return time.Duration(d.Micros) * time.Microsecond
}

// MarshalJSON encodes an absent duration as null.
func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Micros)
}

// UnmarshalJSON decodes null as an absent duration.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Duration{}
		return nil
	}
	if err := json.Unmarshal(data, &d.Micros); err != nil {
		return err
	}
	d.Valid = true
	return nil
}

// RegionName names a memory region.
type RegionName string

const (
	RegionYoung    RegionName = "YOUNG"
	RegionOld      RegionName = "OLD"
	RegionMetadata RegionName = "METADATA"
	RegionCombined RegionName = "COMBINED"
)

// Region is an occupancy snapshot in kilobytes. After may exceed Capacity
// and derived regions may be slightly negative; values are stored as read.
type Region struct {
	Name     RegionName `json:"name"`
	Before   int64      `json:"before_kb"`
	After    int64      `json:"after_kb"`
	Capacity int64      `json:"capacity_kb"`
}

// CPUTimes is the [Times: user= sys=, real=] block in hundredths of a second.
type CPUTimes struct {
	User int64 `json:"user"`
	Sys  int64 `json:"sys"`
	Real int64 `json:"real"`
}

// Parallelism returns (user+sys)/real. ok is false when real is zero.
func (c CPUTimes) Parallelism() (ratio float64, ok bool) {
	if c.Real <= 0 {
		return 0, false
	}
	return float64(c.User+c.Sys) / float64(c.Real), true
}

// LineSpan is the range of raw input lines a record was read from.
type LineSpan struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Flags are structural markers read from a record.
type Flags uint16

const (
	FlagIncrementalMode Flags = 1 << iota
	FlagPromotionFailed
	FlagConcurrentModeFailure
	FlagToSpaceExhausted
	FlagInitialMark
	FlagMixed
	FlagClassUnloading
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{FlagIncrementalMode, "incremental_mode"},
	{FlagPromotionFailed, "promotion_failed"},
	{FlagConcurrentModeFailure, "concurrent_mode_failure"},
	{FlagToSpaceExhausted, "to_space_exhausted"},
	{FlagInitialMark, "initial_mark"},
	{FlagMixed, "mixed"},
	{FlagClassUnloading, "class_unloading"},
}

// Has reports whether every bit in f2 is set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Names returns the set flags by name.
func (f Flags) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// MarshalJSON encodes the flags as a list of names.
func (f Flags) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Names())
}

// Detail carries the fields that only one kind has.
type Detail interface {
	isDetail()
}

// CommandLine is the detail of HEADER_COMMAND_LINE.
type CommandLine struct {
	Options jvm.Options `json:"options"`
}

// Version is the detail of HEADER_VERSION.
type Version struct {
	Text    string `json:"text"`
	Release string `json:"release,omitempty"`
	Major   int    `json:"major,omitempty"`
}

// Memory is the detail of HEADER_MEMORY, in kilobytes.
type Memory struct {
	PageKB         int64 `json:"page_kb"`
	PhysicalKB     int64 `json:"physical_kb"`
	PhysicalFreeKB int64 `json:"physical_free_kb"`
	SwapKB         int64 `json:"swap_kb"`
	SwapFreeKB     int64 `json:"swap_free_kb"`
}

// Phase is the detail of a concurrent phase marker.
type Phase struct {
	Name    string `json:"name"`
	Start   bool   `json:"start,omitempty"`
	Aborted bool   `json:"aborted,omitempty"`
}

// CollectorInUse is the detail of a unified logging "Using ..." header.
type CollectorInUse struct {
	Name      string    `json:"name"`
	Collector Collector `json:"collector"`
}

// Safepoint is the detail of APPLICATION_STOPPED_TIME.
type Safepoint struct {
	StoppingThreads Duration `json:"stopping_threads_us"`
}

// Unidentified is the detail of an UNKNOWN event: a line no matcher accepted.
type Unidentified struct {
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

func (CommandLine) isDetail()    {}
func (Version) isDetail()        {}
func (Memory) isDetail()         {}
func (Phase) isDetail()          {}
func (CollectorInUse) isDetail() {}
func (Safepoint) isDetail()      {}
func (Unidentified) isDetail()   {}
