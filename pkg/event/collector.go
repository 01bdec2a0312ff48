package event

// Collector is a garbage collector family.
type Collector string

const (
	CollectorUnknown    Collector = "UNKNOWN"
	CollectorSerial     Collector = "SERIAL"
	CollectorParallel   Collector = "PARALLEL"
	CollectorCMS        Collector = "CMS"
	CollectorG1         Collector = "G1"
	CollectorShenandoah Collector = "SHENANDOAH"
	CollectorZGC        Collector = "ZGC"
)

// ParseCollector maps the name printed in a unified logging "Using ..."
// header to a collector family.
func ParseCollector(name string) Collector {
	switch name {
	case "Serial":
		return CollectorSerial
	case "Parallel":
		return CollectorParallel
	case "Concurrent Mark Sweep":
		return CollectorCMS
	case "G1":
		return CollectorG1
	case "Shenandoah":
		return CollectorShenandoah
	case "The Z Garbage Collector", "ZGC":
		return CollectorZGC
	}
	return CollectorUnknown
}
