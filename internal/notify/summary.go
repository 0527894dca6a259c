package notify

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

// SummaryReporter collects notifications and appends a periodic digest to a
// file (or stdout when no path is set).
type SummaryReporter struct {
	mu            sync.Mutex
	notifications []Notification
	outputPath    string
	interval      time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

// NewSummaryReporter creates a new summary reporter
func NewSummaryReporter(outputPath string, interval time.Duration) *SummaryReporter {
	return &SummaryReporter{
		outputPath: outputPath,
		interval:   interval,
		stopChan:   make(chan struct{}),
	}
}

// Notify adds a notification to the next digest
func (s *SummaryReporter) Notify(notification Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notification)
	return nil
}

// Start begins the periodic summary generation
func (s *SummaryReporter) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *SummaryReporter) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.generateSummary()
		case <-s.stopChan:
			// Final digest before exiting
			s.generateSummary()
			return
		}
	}
}

func (s *SummaryReporter) generateSummary() error {
	s.mu.Lock()
	pending := s.notifications
	s.notifications = nil
	s.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	var output io.Writer = os.Stdout
	if s.outputPath != "" {
		f, err := os.OpenFile(s.outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open summary file: %w", err)
		}
		defer f.Close()
		output = f
	}
	writeSummary(output, pending, time.Now())
	return nil
}

func writeSummary(w io.Writer, pending []Notification, now time.Time) {
	typeCounts := make(map[NotificationType]int)
	agentCounts := make(map[string]int)
	for _, n := range pending {
		typeCounts[n.Type]++
		if n.AgentID != "" {
			agentCounts[n.AgentID]++
		}
	}

	fmt.Fprintf(w, "\n=== Notification Summary (%s) ===\n", now.Format(time.RFC3339))
	fmt.Fprintf(w, "Total notifications: %d\n", len(pending))
	for _, typ := range sortedKeys(typeCounts) {
		fmt.Fprintf(w, "  %s: %d\n", typ, typeCounts[typ])
	}
	if len(agentCounts) > 0 {
		fmt.Fprintf(w, "By agent:\n")
		for _, id := range sortedKeys(agentCounts) {
			fmt.Fprintf(w, "  %s: %d\n", id, agentCounts[id])
		}
	}

	// Last 10 in arrival order
	fmt.Fprintf(w, "\nRecent notifications:\n")
	start := max(len(pending)-10, 0)
	for _, n := range pending[start:] {
		fmt.Fprintf(w, "  [%s] %s: %s\n", n.Timestamp.Format("15:04:05"), n.Type, n.Message)
	}
	fmt.Fprintf(w, "\n")
}

func sortedKeys[K ~string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Close stops the reporter after writing a final digest
func (s *SummaryReporter) Close() error {
	close(s.stopChan)
	s.wg.Wait()
	return nil
}
