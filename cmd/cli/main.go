// gcscan - JVM Garbage Collection Log Analyzer
//
// gcscan parses garbage collection logs from every HotSpot collector and
// reports configuration problems, explicit and failed collections, and
// pause statistics.
package main

import (
	"os"

	"github.com/ccollicutt/gcscan/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
