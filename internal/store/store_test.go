package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTestCurriculum(t *testing.T, s *Store) {
	t.Helper()
	kcs := []*KnowledgeComponent{
		{ID: "add", Name: "Addition", Domain: "arithmetic", Tier: 1},
		{ID: "mult", Name: "Multiplication", Domain: "arithmetic", Tier: 2},
	}
	prereqs := []*Prerequisite{
		{KCID: "mult", PrereqID: "add", Required: true},
	}
	items := []*LearningItem{
		{ID: "add-1", KCID: "add", Prompt: "2 + 3 = ?", Difficulty: -1, Discrimination: 1},
		{ID: "add-2", KCID: "add", Prompt: "14 + 9 = ?", Difficulty: 0, Discrimination: 1.2},
	}
	require.NoError(t, s.SaveCurriculum(context.Background(), kcs, prereqs, items))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedTestCurriculum(t, s)
	repo := s.Repo()

	kc, err := repo.KC(ctx, "add")
	require.NoError(t, err)
	assert.Equal(t, "Addition", kc.Name)

	_, err = repo.KC(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "want ErrNotFound, got %v", err)

	edges, err := repo.Prerequisites(ctx, "mult")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, ID("add"), edges[0].PrereqID)
	assert.True(t, edges[0].Required)

	items, err := repo.ItemsForKC(ctx, "add")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Missing skill state reads as (nil, nil).
	state, err := repo.SkillState(ctx, "l1", "add")
	require.NoError(t, err)
	require.Nil(t, state)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpsertSkillState(ctx, &SkillState{
		LearnerID: "l1", KCID: "add", Status: StatusInProgress,
		PMastery: 0.37, Stability: 2.5, Difficulty: 5.1,
		LastReviewedAt: &now, TotalAttempts: 3, CorrectCount: 2,
	}))
	state, err = repo.SkillState(ctx, "l1", "add")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 0.37, state.PMastery)
	assert.Equal(t, 3, state.TotalAttempts)

	// Upsert on the composite key updates in place.
	state.PMastery = 0.6
	require.NoError(t, repo.UpsertSkillState(ctx, state))
	states, err := repo.SkillStates(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 0.6, states[0].PMastery)
}

func TestSQLiteInteractionsAndStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedTestCurriculum(t, s)
	repo := s.Repo()

	for i := 0; i < 3; i++ {
		id, err := repo.AppendInteraction(ctx, &Interaction{
			LearnerID: "l1", KCID: "add", ItemID: "add-1",
			Correct: i < 2, ResponseTimeMs: 6_000,
		})
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.NoError(t, repo.UpdateItemStats(ctx, "add-1", i < 2, 6_000))
	}

	recs, err := repo.InteractionsForItem(ctx, "add-1")
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recent, err := repo.RecentInteractions(ctx, "l1", "add", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	ids, err := repo.ItemsWithResponses(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []ID{"add-1"}, ids)

	item, err := repo.Item(ctx, "add-1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.ResponseCount)
	assert.InDelta(t, 2.0/3.0, item.CorrectRate, 1e-9)
	assert.InDelta(t, 6_000, item.AvgResponseMs, 1e-9)

	require.NoError(t, repo.UpdateItemParameters(ctx, "add-1", 0.25, 1.4, 3))
	item, err = repo.Item(ctx, "add-1")
	require.NoError(t, err)
	assert.Equal(t, 0.25, item.Difficulty)
	assert.Equal(t, 1.4, item.Discrimination)
	assert.Equal(t, 3, item.CalibrationSampleSize)
	assert.NotNil(t, item.CalibratedAt)
}

func TestSaveCurriculumIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedTestCurriculum(t, s)
	// Reseeding must not fail or duplicate rows.
	seedTestCurriculum(t, s)

	repo := s.Repo()
	kcs, err := repo.KCs(ctx, KCFilter{})
	require.NoError(t, err)
	assert.Len(t, kcs, 2)

	items, err := repo.ItemsForKC(ctx, "add")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
