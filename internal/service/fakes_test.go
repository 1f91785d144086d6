package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/lock"
	"github.com/Harshitk-cp/credence/internal/store"
	"go.uber.org/zap"
)

type linkKey struct{ evidenceID, hypothesisID string }

type relKey struct {
	from, to string
	relType  domain.RelationType
}

// memDB backs every fake store so cascades work across them.
type memDB struct {
	mu            sync.Mutex
	hypotheses    map[string]*domain.Hypothesis
	evidence      map[string]*domain.Evidence
	links         map[linkKey]*domain.AffectsLink
	verifications []domain.Verification
	relations     map[relKey]*domain.Relation

	// linkListErr makes ListByHypothesis fail, for best-effort paths.
	linkListErr error
	// confidenceErr fails UpdateConfidence for the listed hypotheses.
	confidenceErr map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		hypotheses: make(map[string]*domain.Hypothesis),
		evidence:   make(map[string]*domain.Evidence),
		links:      make(map[linkKey]*domain.AffectsLink),
		relations:  make(map[relKey]*domain.Relation),
	}
}

func (db *memDB) stores() domain.Stores {
	return domain.Stores{
		Hypotheses:    &fakeHypothesisStore{db},
		Evidence:      &fakeEvidenceStore{db},
		Links:         &fakeLinkStore{db},
		Verifications: &fakeVerificationStore{db},
		Relations:     &fakeRelationStore{db},
	}
}

func copyHypothesis(h *domain.Hypothesis) *domain.Hypothesis {
	c := *h
	if h.BaseConfidence != nil {
		v := *h.BaseConfidence
		c.BaseConfidence = &v
	}
	if h.PreVerificationConfidence != nil {
		v := *h.PreVerificationConfidence
		c.PreVerificationConfidence = &v
	}
	if h.Verified != nil {
		v := *h.Verified
		c.Verified = &v
	}
	return &c
}

// seedHypothesis inserts h directly, bypassing service validation.
func (db *memDB) seedHypothesis(h domain.Hypothesis) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if h.Updated.IsZero() {
		h.Updated = time.Now()
	}
	db.hypotheses[h.ID] = copyHypothesis(&h)
}

func (db *memDB) hypothesis(id string) *domain.Hypothesis {
	db.mu.Lock()
	defer db.mu.Unlock()
	h, ok := db.hypotheses[id]
	if !ok {
		return nil
	}
	return copyHypothesis(h)
}

type fakeHypothesisStore struct{ db *memDB }

func (s *fakeHypothesisStore) Create(ctx context.Context, h *domain.Hypothesis) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.hypotheses[h.ID]; ok {
		return store.ErrConflict
	}
	h.Updated = time.Now()
	s.db.hypotheses[h.ID] = copyHypothesis(h)
	return nil
}

func (s *fakeHypothesisStore) GetByID(ctx context.Context, id string) (*domain.Hypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	h, ok := s.db.hypotheses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyHypothesis(h), nil
}

func (s *fakeHypothesisStore) List(ctx context.Context) ([]domain.Hypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Hypothesis
	for _, h := range s.db.hypotheses {
		out = append(out, *copyHypothesis(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Updated.After(out[j].Updated) })
	return out, nil
}

func (s *fakeHypothesisStore) Delete(ctx context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.hypotheses[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.hypotheses, id)
	for k := range s.db.links {
		if k.hypothesisID == id {
			delete(s.db.links, k)
		}
	}
	for k := range s.db.relations {
		if k.from == id || k.to == id {
			delete(s.db.relations, k)
		}
	}
	kept := s.db.verifications[:0]
	for _, v := range s.db.verifications {
		if v.HypothesisID != id {
			kept = append(kept, v)
		}
	}
	s.db.verifications = kept
	return nil
}

// guard must be called with the lock held.
func (s *fakeHypothesisStore) guard(id string) (*domain.Hypothesis, error) {
	h, ok := s.db.hypotheses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if h.Verified != nil {
		return nil, store.ErrLocked
	}
	return h, nil
}

func (s *fakeHypothesisStore) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	h, err := s.guard(id)
	if err != nil {
		return err
	}
	if err := s.db.confidenceErr[id]; err != nil {
		return err
	}
	h.Confidence = confidence
	h.Updated = time.Now()
	return nil
}

func (s *fakeHypothesisStore) SetBaseConfidenceIfAbsent(ctx context.Context, id string, base float64) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	h, ok := s.db.hypotheses[id]
	if !ok || h.Verified != nil || h.BaseConfidence != nil {
		return false, nil
	}
	h.BaseConfidence = &base
	return true, nil
}

func (s *fakeHypothesisStore) ListMissingBasePrior(ctx context.Context) ([]domain.Hypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Hypothesis
	for _, h := range s.db.hypotheses {
		if h.BaseConfidence == nil && h.Verified == nil {
			out = append(out, *copyHypothesis(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeHypothesisStore) Verify(ctx context.Context, hypothesisID, evidenceID string, vType domain.VerificationType, at time.Time) (*domain.Hypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.evidence[evidenceID]; !ok {
		return nil, store.ErrNotFound
	}
	h, err := s.guard(hypothesisID)
	if err != nil {
		return nil, err
	}
	pre := h.Confidence
	h.PreVerificationConfidence = &pre
	h.Confidence = vType.LockedConfidence()
	h.Verified = &at
	h.VerificationType = vType
	h.Updated = at
	s.db.verifications = append(s.db.verifications, domain.Verification{
		EvidenceID:                evidenceID,
		HypothesisID:              hypothesisID,
		Type:                      vType,
		VerifiedAt:                at,
		PreVerificationConfidence: &pre,
	})
	return copyHypothesis(h), nil
}

func (s *fakeHypothesisStore) ListVerified(ctx context.Context) ([]domain.Hypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Hypothesis
	for _, h := range s.db.hypotheses {
		if h.Verified != nil {
			out = append(out, *copyHypothesis(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Verified.After(*out[j].Verified) })
	return out, nil
}

type fakeEvidenceStore struct{ db *memDB }

func (s *fakeEvidenceStore) Create(ctx context.Context, e *domain.Evidence) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.evidence[e.ID]; ok {
		return store.ErrConflict
	}
	e.Timestamp = time.Now()
	c := *e
	s.db.evidence[e.ID] = &c
	return nil
}

func (s *fakeEvidenceStore) GetByID(ctx context.Context, id string) (*domain.Evidence, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.evidence[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (s *fakeEvidenceStore) List(ctx context.Context) ([]domain.Evidence, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Evidence
	for _, e := range s.db.evidence {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *fakeEvidenceStore) Update(ctx context.Context, e *domain.Evidence) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.evidence[e.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Content = e.Content
	cur.SourceURL = e.SourceURL
	e.Timestamp = cur.Timestamp
	return nil
}

func (s *fakeEvidenceStore) Delete(ctx context.Context, id string) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.evidence[id]; !ok {
		return nil, store.ErrNotFound
	}
	delete(s.db.evidence, id)
	for i := range s.db.verifications {
		if s.db.verifications[i].EvidenceID == id {
			s.db.verifications[i].EvidenceID = ""
		}
	}
	var affected []string
	for k := range s.db.links {
		if k.evidenceID == id {
			affected = append(affected, k.hypothesisID)
			delete(s.db.links, k)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

type fakeLinkStore struct{ db *memDB }

func (s *fakeLinkStore) hypothesisGuard(id string) error {
	h, ok := s.db.hypotheses[id]
	if !ok {
		return store.ErrNotFound
	}
	if h.Verified != nil {
		return store.ErrLocked
	}
	return nil
}

func (s *fakeLinkStore) Create(ctx context.Context, l *domain.AffectsLink) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.evidence[l.EvidenceID]; !ok {
		return store.ErrNotFound
	}
	if err := s.hypothesisGuard(l.HypothesisID); err != nil {
		return err
	}
	k := linkKey{l.EvidenceID, l.HypothesisID}
	if _, ok := s.db.links[k]; ok {
		return store.ErrConflict
	}
	l.Created = time.Now()
	c := *l
	s.db.links[k] = &c
	return nil
}

func (s *fakeLinkStore) Exists(ctx context.Context, evidenceID, hypothesisID string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.links[linkKey{evidenceID, hypothesisID}]
	return ok, nil
}

func (s *fakeLinkStore) Get(ctx context.Context, evidenceID, hypothesisID string) (*domain.AffectsLink, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	l, ok := s.db.links[linkKey{evidenceID, hypothesisID}]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *l
	return &c, nil
}

func (s *fakeLinkStore) Update(ctx context.Context, evidenceID, hypothesisID string, lk domain.Likelihoods) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.hypothesisGuard(hypothesisID); err != nil {
		return err
	}
	l, ok := s.db.links[linkKey{evidenceID, hypothesisID}]
	if !ok {
		return store.ErrNotFound
	}
	l.Likelihoods = lk
	return nil
}

func (s *fakeLinkStore) Delete(ctx context.Context, evidenceID, hypothesisID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.hypothesisGuard(hypothesisID); err != nil {
		return err
	}
	k := linkKey{evidenceID, hypothesisID}
	if _, ok := s.db.links[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.links, k)
	return nil
}

func (s *fakeLinkStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.AffectsLink, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.linkListErr != nil {
		return nil, s.db.linkListErr
	}
	var out []domain.AffectsLink
	for k, l := range s.db.links {
		if k.hypothesisID == hypothesisID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeLinkStore) ListByEvidence(ctx context.Context, evidenceID string) ([]domain.AffectsLink, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.AffectsLink
	for k, l := range s.db.links {
		if k.evidenceID == evidenceID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (s *fakeLinkStore) ListLinkedEvidence(ctx context.Context, hypothesisID string) ([]domain.LinkedEvidence, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.LinkedEvidence
	for k, l := range s.db.links {
		if k.hypothesisID == hypothesisID {
			out = append(out, domain.LinkedEvidence{Evidence: *s.db.evidence[k.evidenceID], Relationship: l.Likelihoods})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Evidence.ID < out[j].Evidence.ID })
	return out, nil
}

func (s *fakeLinkStore) ListLinkedHypotheses(ctx context.Context, evidenceID string) ([]domain.LinkedHypothesis, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.LinkedHypothesis
	for k, l := range s.db.links {
		if k.evidenceID == evidenceID {
			out = append(out, domain.LinkedHypothesis{Hypothesis: *copyHypothesis(s.db.hypotheses[k.hypothesisID]), Relationship: l.Likelihoods})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hypothesis.ID < out[j].Hypothesis.ID })
	return out, nil
}

type fakeVerificationStore struct{ db *memDB }

func (s *fakeVerificationStore) ListByHypothesis(ctx context.Context, hypothesisID string) ([]domain.Verification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []domain.Verification{}
	for _, v := range s.db.verifications {
		if v.HypothesisID == hypothesisID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeVerificationStore) LatestPerHypothesis(ctx context.Context) (map[string]domain.Verification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make(map[string]domain.Verification)
	for _, v := range s.db.verifications {
		if cur, ok := out[v.HypothesisID]; !ok || v.VerifiedAt.After(cur.VerifiedAt) {
			out[v.HypothesisID] = v
		}
	}
	return out, nil
}

type fakeRelationStore struct{ db *memDB }

func (s *fakeRelationStore) Create(ctx context.Context, r *domain.Relation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.Created = time.Now()
	c := *r
	s.db.relations[relKey{r.FromID, r.ToID, r.Type}] = &c
	if r.Type == domain.RelationContradicts {
		rev := c
		rev.FromID, rev.ToID = r.ToID, r.FromID
		s.db.relations[relKey{r.ToID, r.FromID, r.Type}] = &rev
	}
	return nil
}

func (s *fakeRelationStore) Delete(ctx context.Context, fromID, toID string, relType domain.RelationType) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	k := relKey{fromID, toID, relType}
	if _, ok := s.db.relations[k]; !ok {
		return store.ErrNotFound
	}
	delete(s.db.relations, k)
	if relType == domain.RelationContradicts {
		delete(s.db.relations, relKey{toID, fromID, relType})
	}
	return nil
}

func (s *fakeRelationStore) ListFrom(ctx context.Context, fromID string) ([]domain.Relation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Relation
	for k, r := range s.db.relations {
		if k.from == fromID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ToID < out[j].ToID })
	return out, nil
}

func (s *fakeRelationStore) Dependents(ctx context.Context, fromID string) ([]domain.DependentState, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.DependentState
	for k, r := range s.db.relations {
		if k.from != fromID || k.relType != domain.RelationDependsOn {
			continue
		}
		h, ok := s.db.hypotheses[k.to]
		if !ok {
			continue
		}
		out = append(out, domain.DependentState{
			HypothesisID: h.ID,
			Confidence:   h.Confidence,
			Strength:     r.Strength,
			Verified:     h.Verified != nil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HypothesisID < out[j].HypothesisID })
	return out, nil
}

func (s *fakeRelationStore) Contradictions(ctx context.Context, minConfidence float64) ([]domain.Contradiction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []domain.Contradiction
	for k := range s.db.relations {
		if k.relType != domain.RelationContradicts || k.from >= k.to {
			continue
		}
		a, b := s.db.hypotheses[k.from], s.db.hypotheses[k.to]
		if a == nil || b == nil || a.Confidence <= minConfidence || b.Confidence <= minConfidence {
			continue
		}
		out = append(out, domain.Contradiction{
			Hypothesis1: domain.HypothesisRef{ID: a.ID, Statement: a.Statement, Confidence: a.Confidence},
			Hypothesis2: domain.HypothesisRef{ID: b.ID, Statement: b.Statement, Confidence: b.Confidence},
		})
	}
	return out, nil
}

// testEnv wires every service over one memDB.
type testEnv struct {
	db            *memDB
	engine        *Engine
	backfill      *Backfiller
	hypotheses    *HypothesisService
	evidence      *EvidenceService
	links         *LinkService
	verifications *VerificationService
	analytics     *AnalyticsService
	propagation   *PropagationService
	updates       *UpdateService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db := newMemDB()
	stores := db.stores()

	engine := NewEngine(stores.Hypotheses, stores.Links, lock.NewKeyedMutex(), logger)
	backfill := NewBackfiller(stores.Hypotheses, stores.Links, engine, logger)
	propagation := NewPropagationService(stores.Hypotheses, stores.Relations, engine, logger)

	return &testEnv{
		db:            db,
		engine:        engine,
		backfill:      backfill,
		hypotheses:    NewHypothesisService(stores, engine, logger),
		evidence:      NewEvidenceService(stores, engine, backfill, logger),
		links:         NewLinkService(stores, engine, backfill, logger),
		verifications: NewVerificationService(stores, engine, logger),
		analytics:     NewAnalyticsService(stores.Hypotheses, stores.Verifications, logger),
		propagation:   propagation,
		updates:       NewUpdateService(stores, engine, backfill, propagation, logger),
	}
}

func (e *testEnv) mustHypothesis(t *testing.T, id string, prior float64) {
	t.Helper()
	if _, err := e.hypotheses.Create(context.Background(), id, "statement "+id, prior); err != nil {
		t.Fatalf("create hypothesis %s: %v", id, err)
	}
}

func (e *testEnv) mustEvidence(t *testing.T, id string) {
	t.Helper()
	if _, err := e.evidence.Create(context.Background(), id, "content "+id, "https://example.com/"+id); err != nil {
		t.Fatalf("create evidence %s: %v", id, err)
	}
}

func ptr(v float64) *float64 { return &v }

func timeNow() time.Time { return time.Now().UTC() }
