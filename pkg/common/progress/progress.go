package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nvitorovic/scaffold-eth-2/pkg/common/iface"
)

// IsTTY reports whether stdout is attached to a terminal.
func IsTTY() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// LogProgressTracker emits a log line whenever a tracked item crosses a
// percentage boundary. It is safe for concurrent use.
type LogProgressTracker struct {
	mu       sync.Mutex
	log      iface.Logger
	step     int
	progress map[string]*iface.ProgressInfo
}

func NewLogProgressTracker(step int, log iface.Logger) *LogProgressTracker {
	if step <= 0 {
		step = 10
	}
	return &LogProgressTracker{
		log:      log,
		step:     step,
		progress: make(map[string]*iface.ProgressInfo),
	}
}

func (t *LogProgressTracker) Set(id string, pct int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.progress[id]
	if ok && pct < info.Percentage+t.step && pct != 100 {
		return
	}
	if ok && info.Percentage == pct {
		return
	}
	t.progress[id] = &iface.ProgressInfo{
		Percentage:  pct,
		DisplayText: label,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	t.log.Info("%s: %d%%", label, pct)
}

func (t *LogProgressTracker) Render() {}

func (t *LogProgressTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = make(map[string]*iface.ProgressInfo)
}

// TTYProgressTracker redraws a block of progress bars in place.
type TTYProgressTracker struct {
	mu       sync.Mutex
	out      io.Writer
	width    int
	lines    int
	progress map[string]*iface.ProgressInfo
}

func NewTTYProgressTracker(width int, out io.Writer) *TTYProgressTracker {
	return &TTYProgressTracker{
		out:      out,
		width:    width,
		progress: make(map[string]*iface.ProgressInfo),
	}
}

func (t *TTYProgressTracker) Set(id string, pct int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress[id] = &iface.ProgressInfo{
		Percentage:  pct,
		DisplayText: label,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func (t *TTYProgressTracker) Render() {
	t.mu.Lock()
	defer t.mu.Unlock()

	// move the cursor back over the previous frame
	if t.lines > 0 {
		fmt.Fprintf(t.out, "\033[%dA", t.lines)
	}

	ids := make([]string, 0, len(t.progress))
	for id := range t.progress {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		info := t.progress[id]
		filled := info.Percentage * t.width / 100
		if filled > t.width {
			filled = t.width
		}
		if filled < 0 {
			filled = 0
		}
		bar := strings.Repeat("=", filled) + strings.Repeat(" ", t.width-filled)
		fmt.Fprintf(t.out, "\r\033[K[%s] %3d%% %s\n", bar, info.Percentage, info.DisplayText)
	}
	t.lines = len(ids)
}

func (t *TTYProgressTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = make(map[string]*iface.ProgressInfo)
	t.lines = 0
}
