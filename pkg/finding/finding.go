// Package finding defines the stable codes reported by the analysis rules
// and the catalog that gives each code a severity and a description.
package finding

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies one finding. Codes are stable across releases.
type Code string

// Severity ranks how much attention a finding needs.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Rank orders severities from least to most severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarn:
		return 2
	case SeverityError:
		return 3
	}
	return 0
}

// ParseSeverity maps a configured severity name to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityWarn, "warning":
		return SeverityWarn, nil
	case SeverityError:
		return SeverityError, nil
	}
	return "", fmt.Errorf("unknown severity %q (want info, warn or error)", s)
}

// Category groups related codes for reporting.
type Category string

const (
	CategoryConfiguration   Category = "configuration"
	CategoryExplicitGC      Category = "explicit_gc"
	CategoryIncrementalMode Category = "incremental_mode"
	CategoryFailure         Category = "failure"
	CategoryThreshold       Category = "threshold"
	CategoryParsing         Category = "parsing"
)

const (
	CMSSerialOld         Code = "CMS_SERIAL_OLD"
	ParNewSerialOld      Code = "PAR_NEW_SERIAL_OLD"
	ParallelSerialOld    Code = "PARALLEL_SERIAL_OLD"
	CollectorMismatch    Code = "COLLECTOR_MISMATCH"
	ExplicitGCSerialCMS  Code = "EXPLICIT_GC_SERIAL_CMS"
	ExplicitGCSerialG1   Code = "EXPLICIT_GC_SERIAL_G1"
	ExplicitGCParallel   Code = "EXPLICIT_GC_PARALLEL"
	ExplicitGCSerial     Code = "EXPLICIT_GC_SERIAL"
	ExplicitGCUnified    Code = "EXPLICIT_GC_UNIFIED"
	HeapInspectionGC     Code = "HEAP_INSPECTION_GC"
	HeapDumpGC           Code = "HEAP_DUMP_GC"
	GCLockerGC           Code = "GCLOCKER_GC"
	MetaspaceThresholdGC Code = "METASPACE_THRESHOLD_GC"

	CMSIncrementalMode           Code = "CMS_INCREMENTAL_MODE"
	CMSIncModeWithInitOccupFract Code = "CMS_INC_MODE_WITH_INIT_OCCUP_FRACT"

	CMSPromotionFailed       Code = "CMS_PROMOTION_FAILED"
	CMSConcurrentModeFailure Code = "CMS_CONCURRENT_MODE_FAILURE"
	G1EvacuationFailure      Code = "G1_EVACUATION_FAILURE"
	ParallelPromotionFailed  Code = "PARALLEL_PROMOTION_FAILED"
	G1ConcurrentMarkAborted  Code = "G1_CONCURRENT_MARK_ABORTED"

	FirstTimestampThresholdExceeded Code = "FIRST_TIMESTAMP_THRESHOLD_EXCEEDED"
	PauseMaxExceeded                Code = "PAUSE_MAX_EXCEEDED"
	ThroughputBelowThreshold        Code = "THROUGHPUT_BELOW_THRESHOLD"

	UnidentifiedLogLinesLast      Code = "UNIDENTIFIED_LOG_LINES_LAST"
	UnidentifiedLogLinesElsewhere Code = "UNIDENTIFIED_LOG_LINES_ELSEWHERE"
	UnknownTrigger                Code = "UNKNOWN_TRIGGER"
)

// Definition describes one code.
type Definition struct {
	Code        Code     `json:"code"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// catalog is in report order.
var catalog = []Definition{
	{CMSSerialOld, SeverityError, CategoryConfiguration,
		"The CMS collector fell back to a serial, single-threaded collection of the old generation. Look for promotion or concurrent mode failures and size the old generation or start the concurrent cycle earlier."},
	{ParNewSerialOld, SeverityWarn, CategoryConfiguration,
		"The parallel young collector (ParNew) is paired with the serial old collector. This pairing is deprecated; use CMS or G1."},
	{ParallelSerialOld, SeverityWarn, CategoryConfiguration,
		"The parallel collector is collecting the old generation with the serial collector. Enable -XX:+UseParallelOldGC for a parallel old collection."},
	{CollectorMismatch, SeverityWarn, CategoryConfiguration,
		"The collector selected by the JVM options does not match the collector that wrote the log."},
	{ExplicitGCSerialCMS, SeverityError, CategoryExplicitGC,
		"Explicit garbage collection (System.gc()) triggers a serial full collection with CMS. Add -XX:+ExplicitGCInvokesConcurrent or -XX:+DisableExplicitGC."},
	{ExplicitGCSerialG1, SeverityError, CategoryExplicitGC,
		"Explicit garbage collection (System.gc()) triggers a serial full collection with G1. Add -XX:+ExplicitGCInvokesConcurrent or -XX:+DisableExplicitGC."},
	{ExplicitGCParallel, SeverityWarn, CategoryExplicitGC,
		"Explicit garbage collection (System.gc()) triggers a full collection with the parallel collector. Consider -XX:+DisableExplicitGC."},
	{ExplicitGCSerial, SeverityWarn, CategoryExplicitGC,
		"Explicit garbage collection (System.gc()) triggers a full collection with the serial collector. Consider -XX:+DisableExplicitGC."},
	{ExplicitGCUnified, SeverityWarn, CategoryExplicitGC,
		"Explicit garbage collection (System.gc()) triggers full collections. Consider -XX:+DisableExplicitGC or -XX:+ExplicitGCInvokesConcurrent."},
	{HeapInspectionGC, SeverityWarn, CategoryExplicitGC,
		"Collections were triggered by heap inspection, usually jmap -histo or a monitoring agent."},
	{HeapDumpGC, SeverityWarn, CategoryExplicitGC,
		"Collections were triggered by heap dumps, usually jmap -dump or -XX:+HeapDumpOnOutOfMemoryError."},
	{GCLockerGC, SeverityInfo, CategoryExplicitGC,
		"Collections were delayed by JNI critical regions (GCLocker). Frequent occurrences point to long native critical sections."},
	{MetaspaceThresholdGC, SeverityWarn, CategoryExplicitGC,
		"Collections were triggered by the metadata space reaching its threshold. Raise -XX:MetaspaceSize."},
	{CMSIncrementalMode, SeverityWarn, CategoryIncrementalMode,
		"CMS incremental mode is enabled. It is intended for machines with one or two processors and is deprecated."},
	{CMSIncModeWithInitOccupFract, SeverityError, CategoryIncrementalMode,
		"CMS incremental mode is combined with -XX:CMSInitiatingOccupancyFraction, which makes the concurrent cycle start at a fixed occupancy and defeats incremental scheduling."},
	{CMSPromotionFailed, SeverityError, CategoryFailure,
		"A CMS young collection could not promote objects into a fragmented or full old generation and fell back to a serial old collection."},
	{CMSConcurrentModeFailure, SeverityError, CategoryFailure,
		"The CMS concurrent cycle did not finish before the old generation filled and a serial old collection took over. Start the cycle earlier or enlarge the heap."},
	{G1EvacuationFailure, SeverityError, CategoryFailure,
		"G1 ran out of space to evacuate live objects (to-space exhausted). Enlarge the heap or reserve more space with -XX:G1ReservePercent."},
	{ParallelPromotionFailed, SeverityError, CategoryFailure,
		"A parallel young collection failed to promote objects and was followed by a full collection."},
	{G1ConcurrentMarkAborted, SeverityWarn, CategoryFailure,
		"A G1 concurrent marking cycle was aborted by a full collection before it completed."},
	{FirstTimestampThresholdExceeded, SeverityWarn, CategoryThreshold,
		"The first timestamp is much later than JVM start. The log may be a rotated fragment or the timestamp basis is wrong; supply the JVM start instant."},
	{PauseMaxExceeded, SeverityWarn, CategoryThreshold,
		"At least one collection paused the application longer than the configured maximum pause."},
	{ThroughputBelowThreshold, SeverityWarn, CategoryThreshold,
		"The share of time the application ran outside collection pauses is below the configured minimum throughput."},
	{UnidentifiedLogLinesLast, SeverityInfo, CategoryParsing,
		"The last line of the log was not recognized. It is usually a record cut off when the capture was taken."},
	{UnidentifiedLogLinesElsewhere, SeverityWarn, CategoryParsing,
		"Lines before the end of the log were not recognized. The log has a format or option combination the parser does not support."},
	{UnknownTrigger, SeverityInfo, CategoryParsing,
		"Collections carried a trigger that the selected runtime version vocabulary does not recognize."},
}

var index = func() map[Code]int {
	m := make(map[Code]int, len(catalog))
	for i, d := range catalog {
		m[d.Code] = i
	}
	return m
}()

// Catalog returns every definition in report order.
func Catalog() []Definition {
	return append([]Definition(nil), catalog...)
}

// Lookup returns the definition of c.
func Lookup(c Code) (Definition, bool) {
	i, ok := index[c]
	if !ok {
		return Definition{}, false
	}
	return catalog[i], true
}

// Known reports whether c is in the catalog.
func (c Code) Known() bool {
	_, ok := index[c]
	return ok
}

// Severity returns the severity of c, or SeverityInfo for unknown codes.
func (c Code) Severity() Severity {
	if d, ok := Lookup(c); ok {
		return d.Severity
	}
	return SeverityInfo
}

// Description returns the human-readable description of c.
func (c Code) Description() string {
	if d, ok := Lookup(c); ok {
		return d.Description
	}
	return string(c)
}

// Parse maps user input to a catalog code, ignoring case.
func Parse(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Known() {
		return "", fmt.Errorf("unknown finding code %q", s)
	}
	return c, nil
}

// Set returns codes without duplicates in catalog order. Codes missing
// from the catalog sort last, by name.
func Set(codes ...Code) []Code {
	seen := make(map[Code]bool, len(codes))
	out := make([]Code, 0, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, aok := index[out[i]]
		b, bok := index[out[j]]
		switch {
		case aok && bok:
			return a < b
		case aok != bok:
			return aok
		}
		return out[i] < out[j]
	})
	return out
}

// Max returns the highest severity among codes, or "" when there are none.
func Max(codes []Code) Severity {
	var top Severity
	for _, c := range codes {
		if s := c.Severity(); s.Rank() > top.Rank() {
			top = s
		}
	}
	return top
}
