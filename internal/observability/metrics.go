package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	requestDuration map[string]time.Duration
	errorCount      map[string]int64
	triageOutcomes  map[string]int64
	followupActions map[string]int64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Requests        map[string]int64 `json:"requests"`
	RequestAvgMs    map[string]int64 `json:"request_avg_ms"`
	Errors          map[string]int64 `json:"errors"`
	TriageOutcomes  map[string]int64 `json:"triage_outcomes"`
	FollowupActions map[string]int64 `json:"followup_actions"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:    make(map[string]int64),
		requestDuration: make(map[string]time.Duration),
		errorCount:      make(map[string]int64),
		triageOutcomes:  make(map[string]int64),
		followupActions: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requestDuration[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTriage counts a triage outcome or a notable pipeline step.
func (m *Metrics) RecordTriage(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triageOutcomes[outcome]++
}

// RecordFollowup adds the results of one follow-up sweep.
func (m *Metrics) RecordFollowup(reminders, warnings, closed, errors int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followupActions["sweeps"]++
	m.followupActions["reminders"] += int64(reminders)
	m.followupActions["warnings"] += int64(warnings)
	m.followupActions["closed"] += int64(closed)
	m.followupActions["errors"] += int64(errors)
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Requests:        map[string]int64{},
		RequestAvgMs:    map[string]int64{},
		Errors:          map[string]int64{},
		TriageOutcomes:  map[string]int64{},
		FollowupActions: map[string]int64{},
	}
	if m == nil {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.requestCount {
		s.Requests[k] = v
		if v > 0 {
			s.RequestAvgMs[k] = m.requestDuration[k].Milliseconds() / v
		}
	}
	for k, v := range m.errorCount {
		s.Errors[k] = v
	}
	for k, v := range m.triageOutcomes {
		s.TriageOutcomes[k] = v
	}
	for k, v := range m.followupActions {
		s.FollowupActions[k] = v
	}
	return s
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
