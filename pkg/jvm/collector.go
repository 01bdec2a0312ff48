package jvm

// Option names the analysis rules consult.
const (
	UseSerialGC                    = "UseSerialGC"
	UseParallelGC                  = "UseParallelGC"
	UseParallelOldGC               = "UseParallelOldGC"
	UseParNewGC                    = "UseParNewGC"
	UseConcMarkSweepGC             = "UseConcMarkSweepGC"
	UseG1GC                        = "UseG1GC"
	UseShenandoahGC                = "UseShenandoahGC"
	UseZGC                         = "UseZGC"
	CMSIncrementalMode             = "CMSIncrementalMode"
	CMSInitiatingOccupancyFraction = "CMSInitiatingOccupancyFraction"
	ExplicitGCInvokesConcurrent    = "ExplicitGCInvokesConcurrent"
	DisableExplicitGC              = "DisableExplicitGC"
)

// CollectorOption returns the name of the collector selection option that
// is enabled, or "" when none is. When several are enabled the JVM refuses
// to start, so the first match in selection order is reported.
func (o Options) CollectorOption() string {
	for _, name := range []string{
		UseConcMarkSweepGC, UseG1GC, UseParallelOldGC, UseParallelGC,
		UseSerialGC, UseShenandoahGC, UseZGC, UseParNewGC,
	} {
		if o.Enabled(name) {
			return name
		}
	}
	return ""
}
