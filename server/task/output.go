package task

import (
	"github.com/armon/circbuf"
)

// outputCap bounds how much of a remote command's stdout/stderr is
// retained for the result message; commands can run arbitrarily long,
// the wire result must not.
const outputCap = 8192

// OutputCollector captures a remote command's output into a bounded
// ring buffer so a runaway command can't grow the eventual
// RemoteCommandResult without bound (spec.md §4.9's remote command
// result carries a message, not an unbounded stream).
type OutputCollector struct {
	buf *circbuf.Buffer
}

// NewOutputCollector builds a collector capped at outputCap bytes.
func NewOutputCollector() (*OutputCollector, error) {
	buf, err := circbuf.NewBuffer(outputCap)
	if err != nil {
		return nil, err
	}
	return &OutputCollector{buf: buf}, nil
}

// Write implements io.Writer, so a command's exec.Cmd.Stdout can point
// straight at a collector.
func (o *OutputCollector) Write(p []byte) (int, error) {
	return o.buf.Write(p)
}

// Result builds the RemoteCommandResult for taskID from whatever
// output was captured, truncated to the tail outputCap bytes holds.
func (o *OutputCollector) Result(taskID string, status int) RemoteCommandResult {
	return RemoteCommandResult{
		TaskID:  taskID,
		Status:  status,
		Message: o.buf.String(),
	}
}
