package sink

import (
	"fmt"
	"os"

	"github.com/heyu-project/heyud/internal/metrics"
)

// FileDriver appends each notification's fixed-layout record to a file,
// flushing after every record so a tail -f follower sees progress
// immediately. Unlike StdoutDriver it prints no blank-line separator
// between records.
type FileDriver struct {
	Path    string
	Metrics metrics.Collector

	file *os.File
}

// SetMetrics implements MetricsSetter.
func (d *FileDriver) SetMetrics(c metrics.Collector) { d.Metrics = c }

func (d *FileDriver) Run(src Source) error {
	f, err := os.OpenFile(d.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("sink: opening %s: %w", d.Path, err)
	}
	defer f.Close()
	d.file = f

	for {
		msg, ok := src.Next()
		if !ok {
			return nil
		}
		writeRecord(f, msg)
		if err := f.Sync(); err != nil {
			return fmt.Errorf("sink: flushing %s: %w", d.Path, err)
		}
		recordDelivered(d.Metrics)
	}
}
