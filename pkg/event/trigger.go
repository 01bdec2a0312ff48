package event

// Trigger is the stated cause of a collection.
type Trigger string

const (
	// TriggerNone means the source line carried no trigger annotation.
	TriggerNone Trigger = "NONE"
	// TriggerUnknown means the line carried trigger text that the active
	// vocabulary does not recognize. The text is kept in Event.TriggerText.
	TriggerUnknown Trigger = "UNKNOWN"

	TriggerAllocationFailure             Trigger = "ALLOCATION_FAILURE"
	TriggerSystemGC                      Trigger = "SYSTEM_GC"
	TriggerMetadataGCThreshold           Trigger = "METADATA_GC_THRESHOLD"
	TriggerMetadataGCClearSoftReferences Trigger = "METADATA_GC_CLEAR_SOFT_REFERENCES"
	TriggerLastDitchCollection           Trigger = "LAST_DITCH_COLLECTION"
	TriggerPermGenFull                   Trigger = "PERM_GEN_FULL"
	TriggerErgonomics                    Trigger = "ERGONOMICS"
	TriggerCMSInitialMark                Trigger = "CMS_INITIAL_MARK"
	TriggerCMSFinalRemark                Trigger = "CMS_FINAL_REMARK"
	TriggerConcurrentModeFailure         Trigger = "CONCURRENT_MODE_FAILURE"
	TriggerConcurrentModeInterrupted     Trigger = "CONCURRENT_MODE_INTERRUPTED"
	TriggerPromotionFailed               Trigger = "PROMOTION_FAILED"
	TriggerHeapInspectionInitiatedGC     Trigger = "HEAP_INSPECTION_INITIATED_GC"
	TriggerHeapDumpInitiatedGC           Trigger = "HEAP_DUMP_INITIATED_GC"
	TriggerGCLockerInitiatedGC           Trigger = "GCLOCKER_INITIATED_GC"
	TriggerG1EvacuationPause             Trigger = "G1_EVACUATION_PAUSE"
	TriggerG1HumongousAllocation         Trigger = "G1_HUMONGOUS_ALLOCATION"
	TriggerG1PreventiveCollection        Trigger = "G1_PREVENTIVE_COLLECTION"
	TriggerG1CompactionPause             Trigger = "G1_COMPACTION_PAUSE"
	TriggerToSpaceExhausted              Trigger = "TO_SPACE_EXHAUSTED"
	TriggerJVMTIForcedGC                 Trigger = "JVMTI_FORCED_GC"
	TriggerDiagnosticCommand             Trigger = "DIAGNOSTIC_COMMAND"
	TriggerWhiteBoxInitiated             Trigger = "WHITEBOX_INITIATED"
	TriggerClassUnloading                Trigger = "CLASS_UNLOADING"
	TriggerUpdateAllocationContextStats  Trigger = "UPDATE_ALLOCATION_CONTEXT_STATS"
)

// Explicit reports whether the trigger is an explicit collection request
// made by application code or an operator tool.
func (t Trigger) Explicit() bool {
	switch t {
	case TriggerSystemGC, TriggerJVMTIForcedGC, TriggerDiagnosticCommand:
		return true
	}
	return false
}

// Failure reports whether the trigger records a collector failing to keep
// up (promotion, evacuation or concurrent mode failure).
func (t Trigger) Failure() bool {
	switch t {
	case TriggerConcurrentModeFailure, TriggerPromotionFailed, TriggerToSpaceExhausted:
		return true
	}
	return false
}
