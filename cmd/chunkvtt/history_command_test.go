package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"chunkvtt/internal/history"
	"chunkvtt/internal/testsupport"
)

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No jobs recorded")
}

func TestHistoryListsJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := context.Background()

	started := time.Now().Add(-time.Hour)
	okID, err := store.Start(ctx, history.Job{RunID: "run-ok", Source: "/media/talk.mp3", Engine: "whisperx", StartedAt: started})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Finish(ctx, okID, history.Outcome{Status: history.StatusCompleted, ChunkCount: 4, Processed: 4, Captions: 1234}); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	badID, err := store.Start(ctx, history.Job{RunID: "run-bad", Source: "/media/interview.wav", Engine: "openai", StartedAt: started.Add(time.Minute)})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.Finish(ctx, badID, history.Outcome{Status: history.StatusFailed, Err: errors.New("quota exceeded")}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "talk.mp3")
	requireContains(t, out, "1,234")
	requireContains(t, out, "4/4")
	requireContains(t, out, "interview.wav")
	requireContains(t, out, "quota exceeded")

	out, _, err = runCLI(t, []string{"history", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --limit: %v", err)
	}
	requireContains(t, out, "interview.wav")
	if strings.Contains(out, "talk.mp3") {
		t.Fatalf("limit 1 should only list the newest job:\n%s", out)
	}
}
