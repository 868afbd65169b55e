// Package mock provides a test double for the notify.Sink interface.
package mock

import (
	"context"
	"sync"

	"matchherald/internal/notify"
	"matchherald/internal/report"
)

// Sink is a mock notify.Sink that records every delivery and announcement.
// Set Err to make all calls fail; set DeliverFunc for per-call behaviour.
type Sink struct {
	mu sync.Mutex

	// Err, if non-nil, is returned by both DeliverReport and Announce.
	Err error

	// DeliverFunc, when set, handles DeliverReport calls after recording.
	DeliverFunc func(r *report.Report) error

	// Reports records every delivered report in order.
	Reports []*report.Report

	// Announcements records every Announce message in order.
	Announcements []string
}

// Compile-time interface check.
var _ notify.Sink = (*Sink)(nil)

// DeliverReport records r and returns the configured result.
func (s *Sink) DeliverReport(ctx context.Context, r *report.Report) error {
	s.mu.Lock()
	s.Reports = append(s.Reports, r)
	fn := s.DeliverFunc
	err := s.Err
	s.mu.Unlock()

	if fn != nil {
		return fn(r)
	}
	return err
}

// Announce records the message and returns the configured error.
func (s *Sink) Announce(ctx context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Announcements = append(s.Announcements, message)
	return s.Err
}

// ReportCount returns the number of delivered reports.
func (s *Sink) ReportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Reports)
}

// AnnouncementCount returns the number of Announce calls so far.
func (s *Sink) AnnouncementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Announcements)
}

// ReportIDs returns the match ids of all delivered reports in order.
func (s *Sink) ReportIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.Reports))
	for i, r := range s.Reports {
		ids[i] = r.MatchID
	}
	return ids
}
