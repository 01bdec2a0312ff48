package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ccollicutt/gcscan/pkg/event"
)

// Runtime versions with a distinct trigger vocabulary.
const (
	VersionAuto    = "auto"
	VersionJDK6    = "jdk6"
	VersionJDK7    = "jdk7"
	VersionJDK8    = "jdk8"
	VersionUnified = "unified"
)

// Versions lists the accepted runtime version names.
func Versions() []string {
	return []string{VersionAuto, VersionJDK6, VersionJDK7, VersionJDK8, VersionUnified}
}

// Trigger texts shared by every version that prints a cause.
var commonTriggers = map[string]event.Trigger{
	"Allocation Failure":                 event.TriggerAllocationFailure,
	"GCLocker Initiated GC":              event.TriggerGCLockerInitiatedGC,
	"Heap Inspection Initiated GC":       event.TriggerHeapInspectionInitiatedGC,
	"Heap Dump Initiated GC":             event.TriggerHeapDumpInitiatedGC,
	"Ergonomics":                         event.TriggerErgonomics,
	"CMS Initial Mark":                   event.TriggerCMSInitialMark,
	"CMS Final Remark":                   event.TriggerCMSFinalRemark,
	"Concurrent Mode Failure":            event.TriggerConcurrentModeFailure,
	"concurrent mode failure":            event.TriggerConcurrentModeFailure,
	"concurrent mode interrupted":        event.TriggerConcurrentModeInterrupted,
	"promotion failed":                   event.TriggerPromotionFailed,
	"Promotion Failed":                   event.TriggerPromotionFailed,
	"G1 Evacuation Pause":                event.TriggerG1EvacuationPause,
	"G1 Humongous Allocation":            event.TriggerG1HumongousAllocation,
	"JvmtiEnv ForceGarbageCollection":    event.TriggerJVMTIForcedGC,
	"WhiteBox Initiated Young GC":        event.TriggerWhiteBoxInitiated,
	"WhiteBox Initiated Full GC":         event.TriggerWhiteBoxInitiated,
	"WhiteBox Initiated Concurrent Mark": event.TriggerWhiteBoxInitiated,
}

var versionTriggers = map[string]map[string]event.Trigger{
	VersionJDK6: {
		"System":                    event.TriggerSystemGC,
		"Permanent Generation Full": event.TriggerPermGenFull,
	},
	VersionJDK7: {
		"System":                          event.TriggerSystemGC,
		"System.gc()":                     event.TriggerSystemGC,
		"Permanent Generation Full":       event.TriggerPermGenFull,
		"Diagnostic Command":              event.TriggerDiagnosticCommand,
		"Update Allocation Context Stats": event.TriggerUpdateAllocationContextStats,
	},
	VersionJDK8: {
		"System.gc()":                       event.TriggerSystemGC,
		"Metadata GC Threshold":             event.TriggerMetadataGCThreshold,
		"Metadata GC Clear Soft References": event.TriggerMetadataGCClearSoftReferences,
		"Last ditch collection":             event.TriggerLastDitchCollection,
		"Diagnostic Command":                event.TriggerDiagnosticCommand,
		"to-space exhausted":                event.TriggerToSpaceExhausted,
		"Update Allocation Context Stats":   event.TriggerUpdateAllocationContextStats,
		"Class Unloading":                   event.TriggerClassUnloading,
	},
	VersionUnified: {
		"System.gc()":                       event.TriggerSystemGC,
		"Metadata GC Threshold":             event.TriggerMetadataGCThreshold,
		"Metadata GC Clear Soft References": event.TriggerMetadataGCClearSoftReferences,
		"Last ditch collection":             event.TriggerLastDitchCollection,
		"Diagnostic Command":                event.TriggerDiagnosticCommand,
		"G1 Preventive Collection":          event.TriggerG1PreventiveCollection,
		"G1 Compaction Pause":               event.TriggerG1CompactionPause,
		"To-space exhausted":                event.TriggerToSpaceExhausted,
		"Class Unloading":                   event.TriggerClassUnloading,
	},
}

// Vocabulary maps trigger text to the trigger taxonomy for one runtime
// version. It is immutable and safe to share between registries.
type Vocabulary struct {
	name     string
	triggers map[string]event.Trigger
}

// NewVocabulary returns the vocabulary for a runtime version name. "auto"
// is the union of every version and is the right choice when the version
// that wrote the log is not known.
func NewVocabulary(version string) (Vocabulary, error) {
	version = strings.ToLower(strings.TrimSpace(version))
	if version == "" {
		version = VersionAuto
	}

	triggers := make(map[string]event.Trigger, len(commonTriggers))
	for text, t := range commonTriggers {
		triggers[text] = t
	}

	switch version {
	case VersionAuto:
		for _, v := range []string{VersionJDK6, VersionJDK7, VersionJDK8, VersionUnified} {
			for text, t := range versionTriggers[v] {
				triggers[text] = t
			}
		}
	case VersionJDK6, VersionJDK7, VersionJDK8, VersionUnified:
		for text, t := range versionTriggers[version] {
			triggers[text] = t
		}
	default:
		return Vocabulary{}, fmt.Errorf("unknown runtime version %q (want one of %s)", version, strings.Join(Versions(), ", "))
	}

	return Vocabulary{name: version, triggers: triggers}, nil
}

// MustVocabulary is like NewVocabulary but panics on an unknown version.
// It is intended for tests and package-level defaults.
func MustVocabulary(version string) Vocabulary {
	v, err := NewVocabulary(version)
	if err != nil {
		panic(err)
	}
	return v
}

// Name returns the runtime version the vocabulary was built for.
func (v Vocabulary) Name() string {
	return v.name
}

// Lookup maps trigger text to a trigger. Empty text is TriggerNone; text the
// vocabulary does not know is TriggerUnknown.
func (v Vocabulary) Lookup(text string) event.Trigger {
	text = strings.TrimSpace(text)
	if text == "" {
		return event.TriggerNone
	}
	if t, ok := v.triggers[text]; ok {
		return t
	}
	return event.TriggerUnknown
}

// Texts returns every trigger text the vocabulary recognizes, sorted.
func (v Vocabulary) Texts() []string {
	texts := make([]string, 0, len(v.triggers))
	for text := range v.triggers {
		texts = append(texts, text)
	}
	sort.Strings(texts)
	return texts
}

// setTrigger records a trigger annotation on e, keeping the raw text when
// the vocabulary does not recognize it.
func (v Vocabulary) setTrigger(e *event.Event, text string) {
	e.Trigger = v.Lookup(text)
	if e.Trigger == event.TriggerUnknown {
		e.TriggerText = strings.TrimSpace(text)
	}
}
