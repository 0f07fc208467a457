package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/rawst/internal/utils"
)

// ProgressSource is polled on every redraw of an active job.
type ProgressSource interface {
	Current() int64
	Total() int64
}

type JobOutput struct {
	ID          int
	Label       string
	Status      string
	Message     string
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	progress    ProgressSource
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

type Manager struct {
	out         io.Writer
	interactive bool
	outputs     map[int]*JobOutput
	mutex       sync.RWMutex
	numLines    int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	jobCount    int
	displayWg   sync.WaitGroup
	stopOnce    sync.Once
}

// NewManager renders to w. Live redraws only happen when w is a terminal;
// otherwise only the final summary is written.
func NewManager(w io.Writer) *Manager {
	interactive := false
	if f, ok := w.(*os.File); ok {
		interactive = isTerminal(f)
	}
	return &Manager{
		out:         w,
		interactive: interactive,
		outputs:     make(map[int]*JobOutput),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.jobCount++
	m.outputs[m.jobCount] = &JobOutput{
		ID:          m.jobCount,
		Label:       label,
		Status:      StatusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.jobCount
}

func (m *Manager) update(id int, fn func(*JobOutput)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		fn(info)
		info.LastUpdated = time.Now()
	}
}

func (m *Manager) SetMessage(id int, message string) {
	m.update(id, func(info *JobOutput) { info.Message = message })
}

func (m *Manager) SetStatus(id int, status string) {
	m.update(id, func(info *JobOutput) { info.Status = status })
}

// AttachProgress marks the job active and ties its bar to src.
func (m *Manager) AttachProgress(id int, src ProgressSource) {
	m.update(id, func(info *JobOutput) {
		info.Status = StatusActive
		info.StartTime = time.Now()
		info.progress = src
	})
}

func (m *Manager) Complete(id int, message string) {
	m.update(id, func(info *JobOutput) {
		if message == "" {
			message = fmt.Sprintf("Completed %s", info.Label)
		}
		info.Message = message
		info.Complete = true
		info.Status = StatusSuccess
	})
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if info, exists := m.outputs[id]; exists {
		info.Complete = true
		info.Status = StatusError
		info.Error = err
		info.Message = fmt.Sprintf("Failed %s", info.Label)
		info.LastUpdated = time.Now()
		m.errors = append(m.errors, ErrorReport{
			Label: info.Label,
			Error: err,
			Time:  time.Now(),
		})
	}
}

// Counts returns the number of succeeded and failed jobs.
func (m *Manager) Counts() (success, failures int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, info := range m.outputs {
		switch info.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		}
	}
	return success, failures
}

func (m *Manager) statusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusWarning:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["arrow"])
	}
}

func (m *Manager) styleMessage(status, message string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(message)
	case StatusError:
		return errorStyle.Render(message)
	case StatusWarning:
		return warningStyle.Render(message)
	default:
		return pendingStyle.Render(message)
	}
}

func (m *Manager) sortedJobs() []*JobOutput {
	jobs := make([]*JobOutput, 0, len(m.outputs))
	for _, info := range m.outputs {
		jobs = append(jobs, info)
	}
	sort.Slice(jobs, func(i, j int) bool {
		// active first, then pending, then completed, each in registration order
		ri, rj := rank(jobs[i]), rank(jobs[j])
		if ri != rj {
			return ri < rj
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

func rank(j *JobOutput) int {
	switch {
	case j.Complete:
		return 2
	case j.Status == StatusPending:
		return 1
	default:
		return 0
	}
}

// render returns the current display lines, at most limit of them.
func (m *Manager) render(limit int) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var lines []string
	indent := strings.Repeat(" ", 2)
	for _, info := range m.sortedJobs() {
		if len(lines) >= limit {
			break
		}
		if info.Status == StatusPending && info.Message == "" {
			lines = append(lines, fmt.Sprintf("%s%s %s", indent, m.statusIndicator(info.Status), pendingStyle.Render("Waiting... "+info.Label)))
			continue
		}
		end := time.Now()
		if info.Complete {
			end = info.LastUpdated
		}
		elapsed := end.Sub(info.StartTime).Round(time.Second)
		lines = append(lines, fmt.Sprintf("%s%s %s %s", indent, m.statusIndicator(info.Status), debugStyle.Render(elapsed.String()), m.styleMessage(info.Status, info.Message)))
		if info.Complete || info.progress == nil || len(lines) >= limit {
			continue
		}
		current, total := info.progress.Current(), info.progress.Total()
		text := fmt.Sprintf("%s %s %s / %s %s %s",
			ProgressBar(current, total, 30),
			StyleSymbols["bullet"],
			utils.FormatBytes(uint64(current)),
			utils.FormatBytes(uint64(max(total, 0))),
			StyleSymbols["bullet"],
			utils.FormatSpeed(current, elapsed.Seconds()),
		)
		lines = append(lines, indent+strings.Repeat(" ", 4)+streamStyle.Render(text))
	}
	return lines
}

func (m *Manager) updateDisplay() {
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	lines := m.render(terminalHeight(os.Stdout) - 3)
	for _, line := range lines {
		fmt.Fprintln(m.out, line)
	}
	m.numLines = len(lines)
}

func (m *Manager) StartDisplay() {
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.interactive {
					m.updateDisplay()
				}
			case <-m.doneCh:
				if m.interactive {
					m.updateDisplay()
				}
				m.ShowSummary()
				return
			}
		}
	}()
}

// StopDisplay stops redrawing and prints the summary. Safe to call twice.
func (m *Manager) StopDisplay() {
	m.stopOnce.Do(func() { close(m.doneCh) })
	m.displayWg.Wait()
}

func (m *Manager) ShowSummary() {
	success, failures := m.Counts()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	indent := strings.Repeat(" ", 2)
	fmt.Fprintln(m.out)
	if !m.interactive {
		for _, info := range m.sortedJobs() {
			fmt.Fprintf(m.out, "%s%s %s\n", indent, m.statusIndicator(info.Status), m.styleMessage(info.Status, info.Message))
		}
	}
	fmt.Fprintln(m.out, indent+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, len(m.outputs))))
	if failures > 0 {
		fmt.Fprintln(m.out, indent+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, len(m.outputs))))
	}
	if len(m.errors) > 0 {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, indent+errorStyle.Bold(true).Render("Errors:"))
		for i, report := range m.errors {
			fmt.Fprintf(m.out, "%s%s %s %s\n",
				strings.Repeat(" ", 4),
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
				errorStyle.Render(report.Label))
			fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 6), errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
		}
	}
	fmt.Fprintln(m.out)
}
