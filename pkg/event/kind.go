// Package event defines the typed records produced by parsing a garbage
// collection log: the closed set of event kinds, the trigger taxonomy, the
// collector families and the Event value itself.
package event

// Kind identifies one variant of the closed event taxonomy.
type Kind string

const (
	KindUnknown Kind = "UNKNOWN"

	// Collections logged without -XX:+PrintGCDetails name no generation.
	KindVerboseYoung Kind = "VERBOSE_YOUNG"
	KindVerboseFull  Kind = "VERBOSE_FULL"

	KindSerialNew Kind = "SERIAL_NEW"
	KindSerialOld Kind = "SERIAL_OLD"

	KindParallelScavenge      Kind = "PARALLEL_SCAVENGE"
	KindParallelSerialOld     Kind = "PARALLEL_SERIAL_OLD"
	KindParallelCompactingOld Kind = "PARALLEL_COMPACTING_OLD"

	KindParNew         Kind = "PAR_NEW"
	KindCMSSerialOld   Kind = "CMS_SERIAL_OLD"
	KindCMSInitialMark Kind = "CMS_INITIAL_MARK"
	KindCMSRemark      Kind = "CMS_REMARK"
	KindCMSConcurrent  Kind = "CMS_CONCURRENT"

	KindG1YoungPause Kind = "G1_YOUNG_PAUSE"
	KindG1MixedPause Kind = "G1_MIXED_PAUSE"
	KindG1FullGC     Kind = "G1_FULL_GC"
	KindG1Remark     Kind = "G1_REMARK"
	KindG1Cleanup    Kind = "G1_CLEANUP"
	KindG1Concurrent Kind = "G1_CONCURRENT"

	KindUnifiedYoung      Kind = "UNIFIED_YOUNG"
	KindUnifiedFull       Kind = "UNIFIED_FULL"
	KindUnifiedRemark     Kind = "UNIFIED_REMARK"
	KindUnifiedCleanup    Kind = "UNIFIED_CLEANUP"
	KindUnifiedConcurrent Kind = "UNIFIED_CONCURRENT"
	KindUnifiedHeader     Kind = "UNIFIED_HEADER"

	KindApplicationStoppedTime Kind = "APPLICATION_STOPPED_TIME"
	KindHeaderCommandLine      Kind = "HEADER_COMMAND_LINE"
	KindHeaderVersion          Kind = "HEADER_VERSION"
	KindHeaderMemory           Kind = "HEADER_MEMORY"
	KindFooterHeap             Kind = "FOOTER_HEAP"
)

// kindInfo holds the static classification of a kind.
type kindInfo struct {
	collector Collector
	blocking  bool
	gc        bool
}

var kinds = map[Kind]kindInfo{
	KindUnknown: {CollectorUnknown, false, false},

	KindVerboseYoung: {CollectorUnknown, true, true},
	KindVerboseFull:  {CollectorUnknown, true, true},

	KindSerialNew: {CollectorSerial, true, true},
	KindSerialOld: {CollectorSerial, true, true},

	KindParallelScavenge:      {CollectorParallel, true, true},
	KindParallelSerialOld:     {CollectorParallel, true, true},
	KindParallelCompactingOld: {CollectorParallel, true, true},

	KindParNew:         {CollectorCMS, true, true},
	KindCMSSerialOld:   {CollectorCMS, true, true},
	KindCMSInitialMark: {CollectorCMS, true, true},
	KindCMSRemark:      {CollectorCMS, true, true},
	KindCMSConcurrent:  {CollectorCMS, false, true},

	KindG1YoungPause: {CollectorG1, true, true},
	KindG1MixedPause: {CollectorG1, true, true},
	KindG1FullGC:     {CollectorG1, true, true},
	KindG1Remark:     {CollectorG1, true, true},
	KindG1Cleanup:    {CollectorG1, true, true},
	KindG1Concurrent: {CollectorG1, false, true},

	// Unified logging lines do not name their collector; the run resolves
	// it from the "Using ..." header.
	KindUnifiedYoung:      {CollectorUnknown, true, true},
	KindUnifiedFull:       {CollectorUnknown, true, true},
	KindUnifiedRemark:     {CollectorUnknown, true, true},
	KindUnifiedCleanup:    {CollectorUnknown, true, true},
	KindUnifiedConcurrent: {CollectorUnknown, false, true},
	KindUnifiedHeader:     {CollectorUnknown, false, false},

	KindApplicationStoppedTime: {CollectorUnknown, true, false},
	KindHeaderCommandLine:      {CollectorUnknown, false, false},
	KindHeaderVersion:          {CollectorUnknown, false, false},
	KindHeaderMemory:           {CollectorUnknown, false, false},
	KindFooterHeap:             {CollectorUnknown, false, false},
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindUnknown,
		KindVerboseYoung, KindVerboseFull,
		KindSerialNew, KindSerialOld,
		KindParallelScavenge, KindParallelSerialOld, KindParallelCompactingOld,
		KindParNew, KindCMSSerialOld, KindCMSInitialMark, KindCMSRemark, KindCMSConcurrent,
		KindG1YoungPause, KindG1MixedPause, KindG1FullGC, KindG1Remark, KindG1Cleanup, KindG1Concurrent,
		KindUnifiedYoung, KindUnifiedFull, KindUnifiedRemark, KindUnifiedCleanup, KindUnifiedConcurrent, KindUnifiedHeader,
		KindApplicationStoppedTime, KindHeaderCommandLine, KindHeaderVersion, KindHeaderMemory, KindFooterHeap,
	}
}

// Valid reports whether k is a member of the taxonomy.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Collector returns the collector family that emits this kind, or
// CollectorUnknown when the kind alone does not say.
func (k Kind) Collector() Collector {
	return kinds[k].collector
}

// Blocking reports whether the kind is a stop-the-world pause.
func (k Kind) Blocking() bool {
	return kinds[k].blocking
}

// Concurrent reports whether the kind is a concurrent collection phase.
func (k Kind) Concurrent() bool {
	info := kinds[k]
	return info.gc && !info.blocking
}

// GC reports whether the kind is a collection (pause or concurrent phase)
// rather than header, footer or safepoint bookkeeping.
func (k Kind) GC() bool {
	return kinds[k].gc
}

// Collection reports whether the kind is a blocking garbage collection,
// the events that count toward pause totals and throughput.
func (k Kind) Collection() bool {
	info := kinds[k]
	return info.gc && info.blocking
}

// Young reports whether the kind collects only the young generation.
func (k Kind) Young() bool {
	switch k {
	case KindVerboseYoung, KindSerialNew, KindParallelScavenge, KindParNew, KindG1YoungPause, KindUnifiedYoung:
		return true
	}
	return false
}

// Full reports whether the kind is a full (whole heap, serial or
// compacting) collection.
func (k Kind) Full() bool {
	switch k {
	case KindVerboseFull, KindSerialOld, KindParallelSerialOld, KindParallelCompactingOld,
		KindCMSSerialOld, KindG1FullGC, KindUnifiedFull:
		return true
	}
	return false
}
