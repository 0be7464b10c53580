package sink

import (
	"fmt"
	"io"

	"github.com/heyu-project/heyud/internal/protocol"
)

// writeRecord prints msg's notify fields in the fixed layout both the
// stdout and file drivers share: one "field: value" line apiece, no
// trailing separator. Callers add their own record separator.
func writeRecord(w io.Writer, msg *protocol.Message) {
	args, ok := msg.Notify()
	if !ok {
		fmt.Fprintf(w, "type: %s\n", msg.Type())
		return
	}

	id := ""
	if args.ID != nil {
		id = *args.ID
	}
	category := ""
	if args.Category != nil {
		category = *args.Category
	}

	fmt.Fprintf(w, "id: %s\n", id)
	fmt.Fprintf(w, "application: %s\n", args.AppName)
	fmt.Fprintf(w, "urgency: %s\n", args.Urgency)
	fmt.Fprintf(w, "category: %s\n", category)
	fmt.Fprintf(w, "summary: %s\n", args.Summary)
	fmt.Fprintf(w, "body: %s\n", args.Body)
}
