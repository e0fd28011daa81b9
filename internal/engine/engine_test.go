package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/selector"
	"github.com/abhisek/skilltrace/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemRepo) {
	t.Helper()
	repo := store.NewMemRepo()
	if err := curriculum.Demo().SeedMem(repo); err != nil {
		t.Fatalf("SeedMem: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Selection.ExplorationRate = 0 // deterministic selection

	e, err := New(repo, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.Selector().SetRand(rand.New(rand.NewSource(1)))
	return e, repo
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetRetention = 0
	if _, err := New(store.NewMemRepo(), cfg, nil); err == nil {
		t.Fatal("invalid config accepted")
	}
}

func TestInitializeLearnerKCs(t *testing.T) {
	ctx := context.Background()
	e, repo := newTestEngine(t)

	created, err := e.InitializeLearnerKCs(ctx, "l1")
	if err != nil {
		t.Fatalf("InitializeLearnerKCs: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want the 2 entry-tier KCs", created)
	}

	states, _ := repo.SkillStates(ctx, "l1")
	if len(states) != 2 {
		t.Fatalf("len(states) = %d, want 2", len(states))
	}
	for _, st := range states {
		if st.Status != store.StatusAvailable {
			t.Errorf("%s Status = %q, want %q", st.KCID, st.Status, store.StatusAvailable)
		}
	}

	// Second run is a no-op.
	created, err = e.InitializeLearnerKCs(ctx, "l1")
	if err != nil || created != 0 {
		t.Errorf("second run = (%d, %v), want (0, nil)", created, err)
	}
}

func TestNextItemOnFreshLearner(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	sel, err := e.NextItem(ctx, "l1", nil)
	if err != nil {
		t.Fatalf("NextItem: %v", err)
	}
	if sel == nil {
		t.Fatal("fresh learner with a seeded curriculum got nothing")
	}
	if sel.KC.Tier != 1 {
		t.Errorf("first item from tier-%d KC %s; prerequisites should gate higher tiers",
			sel.KC.Tier, sel.KC.ID)
	}
	if sel.Reason != selector.ReasonNewTopic {
		t.Errorf("Reason = %s, want new_topic", sel.Reason)
	}
}

func TestSubmitAnswerAdvancesLearner(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	sel, err := e.NextItem(ctx, "l1", nil)
	if err != nil || sel == nil {
		t.Fatalf("NextItem = (%v, %v)", sel, err)
	}

	res, err := e.SubmitAnswer(ctx, selector.Answer{
		LearnerID:      "l1",
		ItemID:         sel.Item.ID,
		KCID:           sel.KC.ID,
		Correct:        true,
		ResponseTimeMs: 4_000,
	})
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if res.PMasteryAfter <= res.PMasteryBefore {
		t.Errorf("mastery did not rise: %.4f -> %.4f", res.PMasteryBefore, res.PMasteryAfter)
	}

	ov, err := e.MasteryOverview(ctx, "l1")
	if err != nil {
		t.Fatalf("MasteryOverview: %v", err)
	}
	if ov.Tracked != 1 {
		t.Errorf("Tracked = %d, want 1", ov.Tracked)
	}
	if ov.MeanPMastery != res.PMasteryAfter {
		t.Errorf("MeanPMastery = %.4f, want %.4f", ov.MeanPMastery, res.PMasteryAfter)
	}

	sched, err := e.ReviewSchedule(ctx, "l1", 90)
	if err != nil {
		t.Fatalf("ReviewSchedule: %v", err)
	}
	if sched.DueNow != 0 {
		t.Errorf("DueNow = %d, want 0 right after a review", sched.DueNow)
	}
	if sched.TotalUpcoming != 1 {
		t.Errorf("TotalUpcoming = %d, want 1", sched.TotalUpcoming)
	}
}

// masterKC submits correct answers until the KC flips to mastered.
func masterKC(t *testing.T, e *Engine, learner, kc store.ID) {
	t.Helper()
	ctx := context.Background()
	items, err := e.repo.ItemsForKC(ctx, kc)
	if err != nil || len(items) == 0 {
		t.Fatalf("ItemsForKC(%s) = (%v, %v)", kc, items, err)
	}
	for i := 0; i < 50; i++ {
		item := items[i%len(items)]
		if _, err := e.SubmitAnswer(ctx, selector.Answer{
			LearnerID: learner, ItemID: item.ID, KCID: kc,
			Correct: true, ResponseTimeMs: 5_000,
		}); err != nil {
			t.Fatalf("SubmitAnswer: %v", err)
		}
		st, err := e.repo.SkillState(ctx, learner, kc)
		if err != nil {
			t.Fatalf("SkillState: %v", err)
		}
		if st.Status == store.StatusMastered {
			return
		}
	}
	t.Fatalf("%s not mastered after 50 correct answers", kc)
}

func TestMasteryUnlocksDownstreamKCs(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	path, err := e.LearningPath(ctx, "l1")
	if err != nil {
		t.Fatalf("LearningPath: %v", err)
	}
	for _, entry := range path {
		if entry.KCID == "multiplication" || entry.KCID == "subtraction" {
			t.Fatalf("tier-2 KC %s offered before addition is mastered", entry.KCID)
		}
	}

	masterKC(t, e, "l1", "addition")

	path, err = e.LearningPath(ctx, "l1")
	if err != nil {
		t.Fatalf("LearningPath: %v", err)
	}
	unlocked := make(map[store.ID]bool)
	for _, entry := range path {
		unlocked[entry.KCID] = true
	}
	if !unlocked["multiplication"] || !unlocked["subtraction"] {
		t.Errorf("mastering addition should unlock subtraction and multiplication, path %v", path)
	}
	if unlocked["division"] || unlocked["fractions"] {
		t.Errorf("tier-3 KCs leaked into the path: %v", path)
	}
	if unlocked["addition"] {
		t.Errorf("mastered KC still on the path (no review is due yet): %v", path)
	}

	ov, err := e.MasteryOverview(ctx, "l1")
	if err != nil {
		t.Fatalf("MasteryOverview: %v", err)
	}
	if ov.Mastered != 1 {
		t.Errorf("Mastered = %d, want 1", ov.Mastered)
	}
	theta, err := e.EstimateAbility(ctx, "l1")
	if err != nil {
		t.Fatalf("EstimateAbility: %v", err)
	}
	if theta <= 0 {
		t.Errorf("theta = %.4f, want positive after mastering a KC", theta)
	}
}

func TestMasteryOverviewRetentionAtFixedClock(t *testing.T) {
	ctx := context.Background()
	e, repo := newTestEngine(t)

	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e.SetClock(func() time.Time { return fixed })

	reviewed := fixed.AddDate(0, 0, -5)
	next := fixed.AddDate(0, 0, 2)
	err := repo.UpsertSkillState(ctx, &store.SkillState{
		LearnerID: "l1", KCID: "counting", Status: store.StatusInProgress,
		PMastery: 0.5, Stability: 5, Difficulty: 5,
		LastReviewedAt: &reviewed, NextReviewAt: &next,
	})
	if err != nil {
		t.Fatalf("UpsertSkillState: %v", err)
	}

	ov, err := e.MasteryOverview(ctx, "l1")
	if err != nil {
		t.Fatalf("MasteryOverview: %v", err)
	}
	if len(ov.KCs) != 1 {
		t.Fatalf("len(KCs) = %d, want 1", len(ov.KCs))
	}
	// Five elapsed days at stability 5 sits exactly on the 90% anchor.
	if math.Abs(ov.KCs[0].Retention-0.9) > 1e-9 {
		t.Errorf("Retention = %.6f, want 0.900000", ov.KCs[0].Retention)
	}
}

func TestCreateSessionUsesDistinctItems(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	session, err := e.CreateSession(ctx, "l1", 5)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if len(session) == 0 {
		t.Fatal("empty session for a fresh learner with a seeded curriculum")
	}
	items := make(map[store.ID]bool)
	for _, sel := range session {
		items[sel.Item.ID] = true
	}
	if len(items) != len(session) {
		t.Errorf("session repeats items: %d distinct of %d", len(items), len(session))
	}
}

func TestCalibrationLifecycle(t *testing.T) {
	ctx := context.Background()
	e, repo := newTestEngine(t)

	// Two learner populations answer counting-1: the strong succeed,
	// the weak fail.
	for i, learner := range []store.ID{"strong-1", "strong-2", "weak-1", "weak-2"} {
		strong := i < 2
		p := 0.9
		if !strong {
			p = 0.1
		}
		_ = repo.UpsertSkillState(ctx, &store.SkillState{
			LearnerID: learner, KCID: "counting",
			Status: store.StatusInProgress, PMastery: p,
		})
		for j := 0; j < 5; j++ {
			if _, err := repo.AppendInteraction(ctx, &store.Interaction{
				LearnerID: learner, KCID: "counting", ItemID: "counting-1", Correct: strong,
			}); err != nil {
				t.Fatalf("AppendInteraction: %v", err)
			}
		}
	}

	res, err := e.CalibrateItem(ctx, "counting-1")
	if err != nil {
		t.Fatalf("CalibrateItem: %v", err)
	}
	if !res.Calibrated {
		t.Fatal("20 responses should calibrate")
	}

	batch, err := e.CalibrateAll(ctx, 0)
	if err != nil {
		t.Fatalf("CalibrateAll: %v", err)
	}
	if len(batch.Results) != 1 || len(batch.Failures) != 0 {
		t.Errorf("batch = %d results %d failures, want 1 and 0", len(batch.Results), len(batch.Failures))
	}
}
