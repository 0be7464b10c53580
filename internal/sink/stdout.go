package sink

import (
	"fmt"
	"io"

	"github.com/heyu-project/heyud/internal/metrics"
)

// StdoutDriver prints each notification in a fixed multi-field layout
// separated by blank lines, and a running count once the stream ends.
type StdoutDriver struct {
	Out     io.Writer
	Metrics metrics.Collector
}

// SetMetrics implements MetricsSetter.
func (d *StdoutDriver) SetMetrics(c metrics.Collector) { d.Metrics = c }

func (d *StdoutDriver) Run(src Source) error {
	count := 0
	for {
		msg, ok := src.Next()
		if !ok {
			break
		}
		writeRecord(d.Out, msg)
		fmt.Fprintln(d.Out)
		count++
		recordDelivered(d.Metrics)
	}
	fmt.Fprintf(d.Out, "%d notification(s) received\n", count)
	return nil
}
