package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LineEmitter implements Emitter by writing one line per event to a
// writer. This is the engine's diagnostic log sink: the fleet attaches
// one LineEmitter per site over ./logs/<site_name>.
//
// Two output modes:
//   - Text mode (default): a human-readable ">> " prefixed line with the
//     event name in brackets, site= and seq= fields, and any metadata as
//     one JSON object after meta=. Line content is diagnostic only;
//     nothing should parse it.
//   - JSON mode: one JSON object per line (JSONL).
//
// Example text output:
//
//	>> [send] site=Amy seq=3 meta={"msg_kind":"copy","peer":"sid:0000000000000001"}
//
// Example JSON output:
//
//	{"site":"Amy","seq":3,"msg":"send","meta":{"peer":"sid:0000000000000001"}}
type LineEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLineEmitter creates a new LineEmitter writing to writer. A nil
// writer defaults to os.Stdout. If jsonMode is true events are written
// as JSONL instead of text lines.
func NewLineEmitter(writer io.Writer, jsonMode bool) *LineEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LineEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one line for the event. Write failures are silent; logging
// is best-effort.
func (l *LineEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LineEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		Site string                 `json:"site"`
		Seq  int                    `json:"seq"`
		Msg  string                 `json:"msg"`
		Meta map[string]interface{} `json:"meta,omitempty"`
	}{
		Site: event.Site,
		Seq:  event.Seq,
		Msg:  event.Msg,
		Meta: event.Meta,
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LineEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, ">> [%s] site=%s seq=%d", event.Msg, event.Site, event.Seq)
	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes all events in order.
func (l *LineEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LineEmitter writes through to the underlying writer.
// Wrap the writer in a bufio.Writer and flush that directly if buffering
// is wanted.
func (l *LineEmitter) Flush(_ context.Context) error {
	return nil
}
