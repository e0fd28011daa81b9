// Package selector composes the mastery tracer, review scheduler and
// item calibrator into a single selection policy: which KC the learner
// should work on next, and which item within it. It is also the single
// write path for answered items.
package selector

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/skilltrace/internal/bkt"
	"github.com/abhisek/skilltrace/internal/fsrs"
	"github.com/abhisek/skilltrace/internal/irt"
	"github.com/abhisek/skilltrace/internal/kcgraph"
	"github.com/abhisek/skilltrace/internal/keylock"
	"github.com/abhisek/skilltrace/internal/store"
)

// Selector picks the next KC and item for a learner.
type Selector struct {
	repo   store.Repo
	tracer *bkt.Tracer
	sched  *fsrs.Scheduler
	cal    *irt.Calibrator
	cfg    Config
	locks  *keylock.KeyedMutex
	rngMu  sync.Mutex
	rng    *rand.Rand
	now    func() time.Time
}

// New creates a Selector over the three models.
func New(repo store.Repo, tracer *bkt.Tracer, sched *fsrs.Scheduler, cal *irt.Calibrator, cfg Config) *Selector {
	return &Selector{
		repo:   repo,
		tracer: tracer,
		sched:  sched,
		cal:    cal,
		cfg:    cfg,
		locks:  keylock.New(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
}

// SetRand overrides the exploration source. Tests only.
func (s *Selector) SetRand(rng *rand.Rand) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng = rng
}

// explorationDraw decides whether to explore and, if so, which of n
// candidates to pick. *rand.Rand is not safe for concurrent use, so
// selections for different learners share the mutex rather than the
// race.
func (s *Selector) explorationDraw(n int) (bool, int) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	if s.rng.Float64() >= s.cfg.ExplorationRate {
		return false, 0
	}
	return true, s.rng.Intn(n)
}

// SetClock overrides the time source. Tests only.
func (s *Selector) SetClock(now func() time.Time) {
	s.now = now
}

// Reason explains why a KC was chosen.
type Reason string

const (
	ReasonReviewDue  Reason = "review_due"
	ReasonInProgress Reason = "in_progress"
	ReasonNewTopic   Reason = "new_topic"
)

// KCChoice is one ranked candidate KC for the learner.
type KCChoice struct {
	KCID     store.ID
	Reason   Reason
	Priority float64
	PMastery float64
}

// NextKC returns the single best KC for the learner to work on, or
// (nil, nil) when nothing is eligible.
func (s *Selector) NextKC(ctx context.Context, learner store.ID) (*KCChoice, error) {
	candidates, err := s.KCCandidates(ctx, learner)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0], nil
}

// KCCandidates returns every eligible KC in priority order: due
// reviews (most urgent first), then in-progress KCs weakest first,
// then unlocked new topics in curriculum order.
func (s *Selector) KCCandidates(ctx context.Context, learner store.ID) ([]*KCChoice, error) {
	var out []*KCChoice

	due, err := s.sched.DueReviews(ctx, learner, s.now())
	if err != nil {
		return nil, err
	}
	seen := make(map[store.ID]bool)
	for _, d := range due {
		out = append(out, &KCChoice{
			KCID:     d.KCID,
			Reason:   ReasonReviewDue,
			Priority: d.Priority,
		})
		seen[d.KCID] = true
	}

	states, err := s.repo.SkillStates(ctx, learner)
	if err != nil {
		return nil, err
	}
	mastered := make(map[store.ID]bool)
	var inProgress []*store.SkillState
	for _, st := range states {
		if st.Status == store.StatusMastered {
			mastered[st.KCID] = true
		}
		if st.Status == store.StatusInProgress && !seen[st.KCID] {
			inProgress = append(inProgress, st)
		}
	}
	// Weakest active skill first.
	sort.Slice(inProgress, func(i, j int) bool {
		if inProgress[i].PMastery != inProgress[j].PMastery {
			return inProgress[i].PMastery < inProgress[j].PMastery
		}
		return inProgress[i].KCID < inProgress[j].KCID
	})
	for _, st := range inProgress {
		out = append(out, &KCChoice{
			KCID:     st.KCID,
			Reason:   ReasonInProgress,
			Priority: 1 - st.PMastery,
			PMastery: st.PMastery,
		})
		seen[st.KCID] = true
	}

	// New topics: curriculum KCs the learner has not mastered and is
	// not already working on, gated on required prerequisites. KCs the
	// learner has never touched are eligible too; their state is
	// created lazily on the first answer.
	kcs, err := s.repo.KCs(ctx, store.KCFilter{})
	if err != nil {
		return nil, err
	}
	for _, kc := range kcs {
		if seen[kc.ID] || mastered[kc.ID] {
			continue
		}
		edges, err := s.repo.Prerequisites(ctx, kc.ID)
		if err != nil {
			return nil, err
		}
		if !kcgraph.Unlocked(edges, mastered) {
			continue
		}
		out = append(out, &KCChoice{
			KCID:   kc.ID,
			Reason: ReasonNewTopic,
		})
	}

	return out, nil
}

// ItemForKC picks an item from the KC's pool. Items the learner saw in
// their recent interactions are filtered out unless that would empty
// the pool. With probability ExplorationRate a uniformly random
// candidate is returned; otherwise the item whose predicted success
// probability is closest to the target wins, with a bonus for
// discrimination. Returns (nil, 0, nil) when the KC has no items.
func (s *Selector) ItemForKC(ctx context.Context, learner, kc store.ID, explore bool) (*store.LearningItem, float64, error) {
	return s.itemForKC(ctx, learner, kc, explore, nil)
}

// itemForKC additionally excludes the given item IDs (session slots
// already filled), relaxing the filters in order if they would empty
// the pool.
func (s *Selector) itemForKC(ctx context.Context, learner, kc store.ID, explore bool, exclude map[store.ID]bool) (*store.LearningItem, float64, error) {
	items, err := s.repo.ItemsForKC(ctx, kc)
	if err != nil {
		return nil, 0, err
	}
	if len(items) == 0 {
		return nil, 0, nil
	}

	recent, err := s.repo.RecentInteractions(ctx, learner, kc, s.cfg.FreshnessWindow)
	if err != nil {
		return nil, 0, err
	}
	recentItems := make(map[store.ID]bool, len(recent))
	for _, rec := range recent {
		recentItems[rec.ItemID] = true
	}

	candidates := make([]*store.LearningItem, 0, len(items))
	for _, item := range items {
		if !recentItems[item.ID] && !exclude[item.ID] {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		for _, item := range items {
			if !exclude[item.ID] {
				candidates = append(candidates, item)
			}
		}
	}
	if len(candidates) == 0 {
		candidates = items
	}

	theta, err := s.cal.EstimateAbility(ctx, learner, nil)
	if err != nil {
		return nil, 0, err
	}

	if explore {
		if ok, pick := s.explorationDraw(len(candidates)); ok {
			item := candidates[pick]
			return item, irt.Logistic(theta, item.Difficulty, item.Discrimination), nil
		}
	}

	var best *store.LearningItem
	var bestPred, bestScore float64
	for _, item := range candidates {
		pred := irt.Logistic(theta, item.Difficulty, item.Discrimination)
		score := math.Abs(pred-s.cfg.OptimalDifficultyTarget) - s.cfg.DiscriminationWeight*item.Discrimination
		if best == nil || score < bestScore {
			best, bestPred, bestScore = item, pred, score
		}
	}
	return best, bestPred, nil
}

// Selection bundles everything a caller needs to present the next item.
type Selection struct {
	Item              *store.LearningItem
	KC                *store.KnowledgeComponent
	Reason            Reason
	IsReview          bool
	PredictedPCorrect float64
	PMastery          float64
	Difficulty        float64
	Discrimination    float64
}

// NextItem resolves the KC (via NextKC when kc is nil), picks an item
// within it, and returns the full selection bundle. (nil, nil) means
// nothing is eligible right now — a normal outcome, not an error.
func (s *Selector) NextItem(ctx context.Context, learner store.ID, kc *store.ID) (*Selection, error) {
	return s.nextItem(ctx, learner, kc, nil)
}

func (s *Selector) nextItem(ctx context.Context, learner store.ID, kc *store.ID, exclude map[store.ID]bool) (*Selection, error) {
	var kcID store.ID
	reason := ReasonInProgress
	if kc != nil {
		kcID = *kc
	} else {
		choice, err := s.NextKC(ctx, learner)
		if err != nil {
			return nil, err
		}
		if choice == nil {
			return nil, nil
		}
		kcID = choice.KCID
		reason = choice.Reason
	}

	component, err := s.repo.KC(ctx, kcID)
	if err != nil {
		return nil, err
	}

	isReview, err := s.isReviewDue(ctx, learner, kcID)
	if err != nil {
		return nil, err
	}

	item, pred, err := s.itemForKC(ctx, learner, kcID, true, exclude)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	snap, err := s.tracer.MasteryStatus(ctx, learner, kcID)
	if err != nil {
		return nil, err
	}

	return &Selection{
		Item:              item,
		KC:                component,
		Reason:            reason,
		IsReview:          isReview,
		PredictedPCorrect: pred,
		PMastery:          snap.PMastery,
		Difficulty:        item.Difficulty,
		Discrimination:    item.Discrimination,
	}, nil
}

func (s *Selector) isReviewDue(ctx context.Context, learner, kc store.ID) (bool, error) {
	state, err := s.repo.SkillState(ctx, learner, kc)
	if err != nil {
		return false, err
	}
	if state == nil || state.NextReviewAt == nil {
		return false, nil
	}
	return !state.NextReviewAt.After(s.now()), nil
}

// BuildSession selects up to target items, spreading slots across
// distinct KCs where possible. Diversification is best effort: each
// slot retries a bounded number of times before settling for a repeat.
func (s *Selector) BuildSession(ctx context.Context, learner store.ID, target int) ([]*Selection, error) {
	usedKCs := make(map[store.ID]bool)
	usedItems := make(map[store.ID]bool)
	var out []*Selection

	for len(out) < target {
		sel, err := s.sessionSlot(ctx, learner, usedKCs, usedItems)
		if err != nil {
			return nil, err
		}
		if sel == nil {
			break
		}
		out = append(out, sel)
		usedKCs[sel.KC.ID] = true
		usedItems[sel.Item.ID] = true
	}
	return out, nil
}

// sessionSlot fills one session slot, preferring a KC and item not yet
// used this session.
func (s *Selector) sessionSlot(ctx context.Context, learner store.ID, usedKCs, usedItems map[store.ID]bool) (*Selection, error) {
	candidates, err := s.KCCandidates(ctx, learner)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ordered := make([]*KCChoice, 0, len(candidates))
	for _, c := range candidates {
		if !usedKCs[c.KCID] {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if usedKCs[c.KCID] {
			ordered = append(ordered, c)
		}
	}

	var fallback *Selection
	attempts := 0
	for _, choice := range ordered {
		if attempts >= s.cfg.SessionRetries {
			break
		}
		attempts++
		kcID := choice.KCID
		sel, err := s.nextItem(ctx, learner, &kcID, usedItems)
		if err != nil {
			return nil, err
		}
		if sel == nil {
			continue
		}
		sel.Reason = choice.Reason
		if !usedItems[sel.Item.ID] {
			return sel, nil
		}
		if fallback == nil {
			fallback = sel
		}
	}
	return fallback, nil
}
