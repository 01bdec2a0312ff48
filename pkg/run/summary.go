package run

import (
	"time"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// KindStats are the duration statistics of one event kind. Durations are
// in microseconds and cover only the events whose duration was read.
type KindStats struct {
	Kind  event.Kind `json:"kind"`
	Count int        `json:"count"`
	Timed int        `json:"timed"`
	Min   int64      `json:"min_us"`
	Max   int64      `json:"max_us"`
	Total int64      `json:"total_us"`
}

// Mean returns the average duration in microseconds, or zero when no event
// of the kind carried a duration.
func (k KindStats) Mean() float64 {
	if k.Timed == 0 {
		return 0
	}
	return float64(k.Total) / float64(k.Timed)
}

// Summary holds the statistics of a run. Durations are microseconds and
// sizes kilobytes.
type Summary struct {
	Kinds []KindStats `json:"kinds"`

	Events      int `json:"events"`
	Collections int `json:"collections"`

	// PauseTotal and PauseMax cover blocking collections only.
	PauseTotal int64      `json:"pause_total_us"`
	PauseMax   int64      `json:"pause_max_us"`
	PauseMaxAt int64      `json:"pause_max_at_ms"`
	PauseKind  event.Kind `json:"pause_max_kind,omitempty"`

	// FirstTimestamp is the first timestamp written in the log and LastEnd
	// the time the last event finished, both in milliseconds.
	FirstTimestamp int64 `json:"first_timestamp_ms"`
	LastEnd        int64 `json:"last_end_ms"`
	HasTimestamps  bool  `json:"has_timestamps"`

	// Throughput is 1 - PauseTotal/Span clamped to [0, 1] and Overhead is
	// its complement. Both are zero when the span is empty.
	Throughput float64 `json:"throughput"`
	Overhead   float64 `json:"overhead"`

	MaxHeapOccupancy int64 `json:"max_heap_occupancy_kb"`
	MaxHeapCapacity  int64 `json:"max_heap_capacity_kb"`
	MaxHeapAfter     int64 `json:"max_heap_after_gc_kb"`
	MaxMetadata      int64 `json:"max_metadata_kb"`

	SafepointCount int   `json:"safepoint_count"`
	SafepointTotal int64 `json:"safepoint_total_us"`

	// GCShare is PauseTotal/SafepointTotal clamped to [0, 1], or zero when
	// no safepoint summaries were logged.
	GCShare float64 `json:"gc_share_of_stopped"`
}

// Span returns the wall-clock time the run covers, in milliseconds.
func (s Summary) Span() int64 {
	if !s.HasTimestamps || s.LastEnd < s.FirstTimestamp {
		return 0
	}
	return s.LastEnd - s.FirstTimestamp
}

// SpanDuration returns Span as a time.Duration.
func (s Summary) SpanDuration() time.Duration {
	return time.Duration(s.Span()) * time.Millisecond
}

// Stats returns the statistics of kind k.
func (s Summary) Stats(k event.Kind) (KindStats, bool) {
	for _, ks := range s.Kinds {
		if ks.Kind == k {
			return ks, true
		}
	}
	return KindStats{}, false
}

func summarize(events []event.Event) Summary {
	var s Summary
	s.Events = len(events)

	stats := map[event.Kind]*KindStats{}
	for i := range events {
		e := &events[i]

		ks := stats[e.Kind]
		if ks == nil {
			ks = &KindStats{Kind: e.Kind}
			stats[e.Kind] = ks
		}
		ks.Count++
		if d := e.Duration; d.Valid {
			if ks.Timed == 0 || d.Micros < ks.Min {
				ks.Min = d.Micros
			}
			if ks.Timed == 0 || d.Micros > ks.Max {
				ks.Max = d.Micros
			}
			ks.Timed++
			ks.Total += d.Micros
		}

		if e.HasTimestamp && !s.HasTimestamps {
			s.FirstTimestamp, s.HasTimestamps = e.Timestamp, true
		}
		if s.HasTimestamps {
			if end := e.End(); end > s.LastEnd {
				s.LastEnd = end
			}
		}

		if e.Kind.Collection() {
			s.Collections++
			if e.Duration.Valid {
				s.PauseTotal += e.Duration.Micros
				if e.Duration.Micros > s.PauseMax {
					s.PauseMax, s.PauseMaxAt, s.PauseKind = e.Duration.Micros, e.Timestamp, e.Kind
				}
			}
		}
		if e.Kind == event.KindApplicationStoppedTime {
			s.SafepointCount++
			if e.Duration.Valid {
				s.SafepointTotal += e.Duration.Micros
			}
		}

		if e.Kind.GC() {
			if r, ok := e.Region(event.RegionCombined); ok {
				s.MaxHeapOccupancy = max(s.MaxHeapOccupancy, r.Before, r.After)
				s.MaxHeapCapacity = max(s.MaxHeapCapacity, r.Capacity)
				s.MaxHeapAfter = max(s.MaxHeapAfter, r.After)
			}
			if r, ok := e.Region(event.RegionMetadata); ok {
				s.MaxMetadata = max(s.MaxMetadata, r.Before, r.After)
			}
		}
	}

	for _, k := range event.Kinds() {
		if ks, ok := stats[k]; ok {
			s.Kinds = append(s.Kinds, *ks)
		}
	}

	if span := s.Span(); span > 0 {
		s.Overhead = clamp(float64(s.PauseTotal) / float64(span*1000))
		s.Throughput = 1 - s.Overhead
	}
	if s.SafepointTotal > 0 {
		s.GCShare = clamp(float64(s.PauseTotal) / float64(s.SafepointTotal))
	}
	return s
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
