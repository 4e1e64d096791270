package progress

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Info(msg string, args ...any)  { r.lines = append(r.lines, fmt.Sprintf(msg, args...)) }
func (r *recordingLogger) Warn(msg string, args ...any)  {}
func (r *recordingLogger) Error(msg string, args ...any) {}
func (r *recordingLogger) Debug(msg string, args ...any) {}
func (r *recordingLogger) Title(msg string, args ...any) {}

func TestLogProgressTracker_ThrottlesBySteps(t *testing.T) {
	log := &recordingLogger{}
	tracker := NewLogProgressTracker(50, log)

	tracker.Set("transfers", 10, "Transfers")
	tracker.Set("transfers", 20, "Transfers")
	tracker.Set("transfers", 60, "Transfers")
	tracker.Set("transfers", 100, "Transfers")
	tracker.Set("transfers", 100, "Transfers")

	assert.Equal(t, []string{"Transfers: 10%", "Transfers: 60%", "Transfers: 100%"}, log.lines)
}

func TestTTYProgressTracker_RendersSortedBars(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTTYProgressTracker(4, &buf)

	tracker.Set("b", 50, "second")
	tracker.Set("a", 100, "first")
	tracker.Render()

	out := buf.String()
	assert.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))
	assert.Contains(t, out, "[====] 100% first")
	assert.Contains(t, out, "[==  ]  50% second")
}
