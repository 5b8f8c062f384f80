package jobs_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"dubber/internal/jobs"
)

func openHistory(t *testing.T) *jobs.HistoryStore {
	t.Helper()
	store, err := jobs.OpenHistory(t.TempDir())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryAppendAndDashboard(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		status := jobs.StatusCompleted
		if i == 2 {
			status = jobs.StatusFailed
		}
		err := store.Append(ctx, jobs.HistoryEntry{
			JobID:          fmt.Sprintf("job-%d", i),
			User:           "alice",
			Filename:       "clip.mp4",
			TargetLanguage: "es",
			Status:         status,
			LipSynced:      i == 0,
			DurationSec:    10,
			Words:          5,
			CreatedAt:      base,
			FinishedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := store.Append(ctx, jobs.HistoryEntry{
		JobID: "other", User: "bob", Filename: "b.mp4", TargetLanguage: "fr",
		Status: jobs.StatusCompleted, CreatedAt: base, FinishedAt: base,
	}); err != nil {
		t.Fatalf("append bob: %v", err)
	}

	dashboard, err := store.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.TotalVideos != 3 || dashboard.Completed != 2 || dashboard.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", dashboard)
	}
	if dashboard.TotalWords != 15 {
		t.Fatalf("total words = %d, want 15", dashboard.TotalWords)
	}
	if dashboard.TotalTimeSec != 30 {
		t.Fatalf("total time = %v, want 30", dashboard.TotalTimeSec)
	}
	if len(dashboard.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(dashboard.History))
	}
	if dashboard.History[0].JobID != "job-2" {
		t.Fatalf("history not newest-first: %+v", dashboard.History[0])
	}
	if !dashboard.History[2].LipSynced {
		t.Fatal("lip_synced flag lost in round trip")
	}
	if dashboard.History[0].DurationSec != 10 || dashboard.History[0].Words != 5 {
		t.Fatalf("per-entry duration/words lost: %+v", dashboard.History[0])
	}
}

func TestDashboardJSONFieldNames(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	if err := store.Append(ctx, jobs.HistoryEntry{
		JobID: "job-0", User: "alice", Filename: "clip.mp4",
		TargetLanguage: "es", Status: jobs.StatusCompleted,
		DurationSec: 12.5, Words: 40,
		CreatedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}
	dashboard, err := store.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	payload, err := json.Marshal(dashboard)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, field := range []string{`"total_videos"`, `"total_words"`, `"total_time_sec"`, `"history"`, `"duration_sec"`, `"words"`} {
		if !strings.Contains(string(payload), field) {
			t.Fatalf("dashboard JSON missing %s: %s", field, payload)
		}
	}
}

func TestHistoryDashboardCapsRecent(t *testing.T) {
	store := openHistory(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 25; i++ {
		err := store.Append(ctx, jobs.HistoryEntry{
			JobID: fmt.Sprintf("job-%02d", i), User: "alice",
			Filename: "clip.mp4", TargetLanguage: "es",
			Status: jobs.StatusCompleted, CreatedAt: base,
			FinishedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	dashboard, err := store.Dashboard(ctx, "alice")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.TotalVideos != 25 {
		t.Fatalf("expected 25 total, got %d", dashboard.TotalVideos)
	}
	if len(dashboard.History) != 20 {
		t.Fatalf("expected history capped at 20, got %d", len(dashboard.History))
	}
}

func TestHistoryDashboardEmptyUser(t *testing.T) {
	store := openHistory(t)
	dashboard, err := store.Dashboard(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.TotalVideos != 0 || len(dashboard.History) != 0 {
		t.Fatalf("expected empty dashboard, got %+v", dashboard)
	}
}
