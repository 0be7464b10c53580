package sink

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/heyu-project/heyud/internal/logging"
	"github.com/heyu-project/heyud/internal/metrics"
	"github.com/heyu-project/heyud/internal/protocol"
)

// ScriptDriver substitutes each notification's fields into a pre-parsed
// command template and runs it as a child process once per notification.
// The template is split on whitespace into argv tokens before parsing,
// never passed to a shell, so no token can introduce shell metacharacter
// injection regardless of notification content.
type ScriptDriver struct {
	argv    [][]segment
	logger  *slog.Logger
	Metrics metrics.Collector
}

// NewScriptDriver parses and validates template once, at startup:
// unknown field names, an unterminated `{`, or a raw `}` are rejected
// here rather than at the first notification.
func NewScriptDriver(template string, logger *slog.Logger) (*ScriptDriver, error) {
	tokens := strings.Fields(template)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("sink: script template must name a command")
	}
	argv := make([][]segment, len(tokens))
	for i, tok := range tokens {
		segs, err := parseTemplate(tok)
		if err != nil {
			return nil, err
		}
		argv[i] = segs
	}
	if logger == nil {
		logger = logging.NewLogger("info")
	}
	return &ScriptDriver{argv: argv, logger: logger}, nil
}

// SetMetrics implements MetricsSetter.
func (d *ScriptDriver) SetMetrics(c metrics.Collector) { d.Metrics = c }

func (d *ScriptDriver) Run(src Source) error {
	for {
		msg, ok := src.Next()
		if !ok {
			return nil
		}
		args, ok := msg.Notify()
		if !ok {
			continue
		}
		fields := notifyFields(args)

		argv := make([]string, len(d.argv))
		for i, segs := range d.argv {
			argv[i] = render(segs, fields)
		}

		cmd := exec.Command(argv[0], argv[1:]...)
		if err := cmd.Run(); err != nil {
			d.logger.Warn("script sink command failed", slog.String("command", argv[0]), slog.String("error", err.Error()))
		}
		recordDelivered(d.Metrics)
	}
}

func notifyFields(args *protocol.NotifyArgs) map[string]string {
	id := ""
	if args.ID != nil {
		id = *args.ID
	}
	category := ""
	if args.Category != nil {
		category = *args.Category
	}
	return map[string]string{
		"id":          id,
		"application": args.AppName,
		"summary":     args.Summary,
		"body":        args.Body,
		"category":    category,
		"urgency":     args.Urgency.String(),
	}
}
