// register.go wires perf/ensemble's constructor into the perf package's
// registration variable (NewTrainerFunc). This init() runs when any package
// imports perf/ensemble, so perf can hand out trainers without importing its
// own implementation.
package ensemble

import "github.com/sstperf/forestc/perf"

func init() {
	perf.NewTrainerFunc = NewTrainer
}
