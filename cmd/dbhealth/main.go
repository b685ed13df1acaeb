// Command dbhealth collects MySQL and host health counters, evaluates them
// against thresholds and writes a timestamped JSON health report.
package main

import "dbhealth/cmd/dbhealth/cmd"

func main() {
	cmd.Execute()
}
