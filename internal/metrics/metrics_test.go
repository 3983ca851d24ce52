// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("close_contest"))

	RecordDBQuery("close_contest", 10*time.Millisecond, nil)
	RecordDBQuery("close_contest", 20*time.Millisecond, errors.New("transaction conflict"))

	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("close_contest")) - before; got != 1 {
		t.Errorf("DBQueryErrors delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
	}{
		{"list active contests", "GET", "/api/v1/contests/active", "200"},
		{"enroll conflict", "POST", "/api/v1/contests/{contestId}/recipes/{recipeId}", "409"},
		{"rating unauthorized", "POST", "/api/v1/recipes/{id}/ratings", "401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, tt.statusCode)
			before := testutil.ToFloat64(counter)
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, 25*time.Millisecond)
			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("counter delta = %v, want 1", got)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordContestClosed(t *testing.T) {
	closedBefore := testutil.ToFloat64(ContestsClosed)
	winnersBefore := testutil.ToFloat64(ContestWinnersSelected)

	RecordContestClosed(2)
	RecordContestClosed(0)

	if got := testutil.ToFloat64(ContestsClosed) - closedBefore; got != 2 {
		t.Errorf("ContestsClosed delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ContestWinnersSelected) - winnersBefore; got != 2 {
		t.Errorf("ContestWinnersSelected delta = %v, want 2", got)
	}
}

func TestRecordNotification(t *testing.T) {
	sent := NotificationsTotal.WithLabelValues("winner", "sent")
	skipped := NotificationsTotal.WithLabelValues("winner", "skipped")
	sentBefore, skippedBefore := testutil.ToFloat64(sent), testutil.ToFloat64(skipped)

	RecordNotification("winner", "sent", 100*time.Millisecond)
	RecordNotification("winner", "skipped", 0)

	if got := testutil.ToFloat64(sent) - sentBefore; got != 1 {
		t.Errorf("sent delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(skipped) - skippedBefore; got != 1 {
		t.Errorf("skipped delta = %v, want 1", got)
	}
}

func TestRecordEventPublish(t *testing.T) {
	ok := EventsPublished.WithLabelValues("contest.closed", "success")
	failed := EventsPublished.WithLabelValues("contest.closed", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordEventPublish("contest.closed", nil)
	RecordEventPublish("contest.closed", errors.New("bus closed"))

	if testutil.ToFloat64(ok)-okBefore != 1 || testutil.ToFloat64(failed)-failedBefore != 1 {
		t.Error("expected one success and one error")
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				RecordEnrollment("accepted")
				RecordSchedulerTick(time.Millisecond)
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}
	wg.Wait()
}

func TestMetricsRegistration(t *testing.T) {
	RecordEnrollment("accepted")
	RatingsSubmitted.WithLabelValues("5").Inc()
	SchedulerContestsProcessed.WithLabelValues("closed").Inc()
	CircuitBreakerState.WithLabelValues("smtp").Set(0)

	var families []*dto.MetricFamily
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"contest_enrollments_total":          false,
		"ratings_submitted_total":            false,
		"scheduler_contests_processed_total": false,
		"circuit_breaker_state":              false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("metric %s not registered", name)
		}
	}
}
