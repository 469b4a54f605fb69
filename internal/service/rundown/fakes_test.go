package rundown

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"rundown/internal/domain"
	models "rundown/internal/domain/models/rundown"
	"rundown/internal/domain/repositories"
	"rundown/internal/tuning"
)

// In-memory fakes for the repository and transaction interfaces. They
// implement the same contracts the postgres implementations do, minus
// real locking: the structural token is a simple held flag tests can
// flip to simulate contention.

type fakeDocRepo struct {
	mu         sync.Mutex
	docs       map[string]*models.Rundown
	rows       map[string][]models.Row // rundownID -> rows ordered by position
	lockHeld   map[string]bool         // simulated structural token contention
	bumpCalls  int
	fieldCalls int
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		docs:     make(map[string]*models.Rundown),
		rows:     make(map[string][]models.Row),
		lockHeld: make(map[string]bool),
	}
}

func (f *fakeDocRepo) Create(ctx context.Context, r *models.Rundown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Version == 0 {
		r.Version = 1
	}
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	f.docs[r.ID] = &cp
	return nil
}

func (f *fakeDocRepo) GetByID(ctx context.Context, id string) (*models.Rundown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocRepo) GetForUpdate(ctx context.Context, id string) (*models.Rundown, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeDocRepo) SetScalarField(ctx context.Context, id, field string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
	}
	switch field {
	case models.FieldTitle:
		doc.Title, _ = value.(string)
	case models.FieldTimezone:
		doc.Timezone, _ = value.(string)
	case models.FieldStartTime:
		doc.StartTime, _ = value.(*time.Time)
	case models.FieldNumberingLocked:
		doc.NumberingLocked, _ = value.(bool)
	default:
		return fmt.Errorf("unknown scalar field %s", field)
	}
	return nil
}

func (f *fakeDocRepo) BumpVersion(ctx context.Context, id, actor string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return 0, fmt.Errorf("rundown %s: %w", id, domain.ErrNotFound)
	}
	doc.Version++
	doc.LastMutator = actor
	doc.UpdatedAt = time.Now()
	f.bumpCalls++
	return doc.Version, nil
}

func (f *fakeDocRepo) ListRows(ctx context.Context, rundownID string) ([]models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Row, len(f.rows[rundownID]))
	copy(out, f.rows[rundownID])
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f *fakeDocRepo) GetRow(ctx context.Context, rundownID, rowID string) (*models.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows[rundownID] {
		if row.ID == rowID {
			cp := row
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("row %s: %w", rowID, domain.ErrNotFound)
}

func (f *fakeDocRepo) SetRowField(ctx context.Context, rundownID, rowID, field string, value interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[rundownID]
	for i := range rows {
		if rows[i].ID == rowID {
			if rows[i].Fields == nil {
				rows[i].Fields = map[string]interface{}{}
			}
			if value == nil {
				delete(rows[i].Fields, field)
			} else {
				rows[i].Fields[field] = value
			}
			f.fieldCalls++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocRepo) CountRows(ctx context.Context, rundownID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[rundownID]), nil
}

func (f *fakeDocRepo) InsertRow(ctx context.Context, row *models.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[row.RundownID]
	for i := range rows {
		if rows[i].Position >= row.Position {
			rows[i].Position++
		}
	}
	f.rows[row.RundownID] = append(rows, *row)
	return nil
}

func (f *fakeDocRepo) DeleteRow(ctx context.Context, rundownID, rowID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[rundownID]
	for i := range rows {
		if rows[i].ID == rowID {
			deletedPos := rows[i].Position
			rows = append(rows[:i], rows[i+1:]...)
			for j := range rows {
				if rows[j].Position > deletedPos {
					rows[j].Position--
				}
			}
			f.rows[rundownID] = rows
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocRepo) MoveRow(ctx context.Context, rundownID, rowID string, toPosition int) (bool, error) {
	found, err := f.DeleteRow(ctx, rundownID, rowID)
	if err != nil || !found {
		return found, err
	}
	// Reinsert at target; the real implementation shifts in place
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[rundownID]
	for i := range rows {
		if rows[i].Position >= toPosition {
			rows[i].Position++
		}
	}
	f.rows[rundownID] = append(rows, models.Row{ID: rowID, RundownID: rundownID, Position: toPosition})
	return true, nil
}

func (f *fakeDocRepo) ReorderRows(ctx context.Context, rundownID string, orderedIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos := map[string]int{}
	for i, id := range orderedIDs {
		pos[id] = i
	}
	rows := f.rows[rundownID]
	next := len(orderedIDs)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	for i := range rows {
		if p, ok := pos[rows[i].ID]; ok {
			rows[i].Position = p
		} else {
			rows[i].Position = next
			next++
		}
	}
	f.rows[rundownID] = rows
	return nil
}

func (f *fakeDocRepo) SetRowFloated(ctx context.Context, rundownID, rowID string, floated bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.rows[rundownID]
	for i := range rows {
		if rows[i].ID == rowID {
			rows[i].Floated = floated
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDocRepo) ReplaceRows(ctx context.Context, rundownID string, rows []models.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]models.Row, len(rows))
	copy(cp, rows)
	f.rows[rundownID] = cp
	return nil
}

func (f *fakeDocRepo) TryStructuralLock(ctx context.Context, rundownID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.lockHeld[rundownID], nil
}

type fakeOpRepo struct {
	mu  sync.Mutex
	ops []models.Operation
}

func (f *fakeOpRepo) Append(ctx context.Context, op *models.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op.ID = int64(len(f.ops) + 1)
	op.CreatedAt = time.Now()
	f.ops = append(f.ops, *op)
	return nil
}

func (f *fakeOpRepo) ListPage(ctx context.Context, rundownID string, limit, offset int) ([]models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Operation
	for i := len(f.ops) - 1; i >= 0; i-- {
		if f.ops[i].RundownID == rundownID {
			matched = append(matched, f.ops[i])
		}
	}
	if offset >= len(matched) {
		return []models.Operation{}, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeOpRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Operation
	var deleted int64
	for _, op := range f.ops {
		if op.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, op)
	}
	f.ops = kept
	return deleted, nil
}

func (f *fakeOpRepo) count(rundownID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, op := range f.ops {
		if op.RundownID == rundownID {
			n++
		}
	}
	return n
}

type fakeSnapRepo struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (f *fakeSnapRepo) Create(ctx context.Context, s *models.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.CreatedAt = time.Now()
	f.snaps = append(f.snaps, *s)
	return nil
}

func (f *fakeSnapRepo) GetByID(ctx context.Context, rundownID, snapshotID string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.snaps {
		if s.RundownID == rundownID && s.ID == snapshotID {
			cp := s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("snapshot %s: %w", snapshotID, domain.ErrNotFound)
}

func (f *fakeSnapRepo) ListMeta(ctx context.Context, rundownID string, limit int) ([]models.SnapshotMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	metas := []models.SnapshotMeta{}
	for i := len(f.snaps) - 1; i >= 0 && len(metas) < limit; i-- {
		s := f.snaps[i]
		if s.RundownID == rundownID {
			metas = append(metas, models.SnapshotMeta{
				ID: s.ID, RundownID: s.RundownID, Reason: s.Reason,
				Version: s.Version, RowCount: len(s.Rows),
				CreatedBy: s.CreatedBy, CreatedAt: s.CreatedAt,
			})
		}
	}
	return metas, nil
}

func (f *fakeSnapRepo) LatestMeta(ctx context.Context, rundownID string) (*models.SnapshotMeta, error) {
	metas, _ := f.ListMeta(ctx, rundownID, 1)
	if len(metas) == 0 {
		return nil, fmt.Errorf("snapshots for %s: %w", rundownID, domain.ErrNotFound)
	}
	return &metas[0], nil
}

func (f *fakeSnapRepo) PruneOldest(ctx context.Context, rundownID string, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine, others []models.Snapshot
	for _, s := range f.snaps {
		if s.RundownID == rundownID {
			mine = append(mine, s)
		} else {
			others = append(others, s)
		}
	}
	var pruned int64
	for len(mine) > keep {
		mine = mine[1:]
		pruned++
	}
	f.snaps = append(others, mine...)
	return pruned, nil
}

func (f *fakeSnapRepo) count(rundownID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.snaps {
		if s.RundownID == rundownID {
			n++
		}
	}
	return n
}

type fakePresenceRepo struct {
	mu      sync.Mutex
	records map[string]map[string]models.Presence // rundownID -> actor -> presence
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{records: make(map[string]map[string]models.Presence)}
}

func (f *fakePresenceRepo) Upsert(ctx context.Context, p *models.Presence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[p.RundownID] == nil {
		f.records[p.RundownID] = make(map[string]models.Presence)
	}
	existing, ok := f.records[p.RundownID][p.Actor]
	cp := *p
	if ok {
		// A plain heartbeat never drops controller status
		cp.Controller = cp.Controller || existing.Controller
	}
	f.records[p.RundownID][p.Actor] = cp
	return nil
}

func (f *fakePresenceRepo) ListActive(ctx context.Context, rundownID string, cutoff time.Time) ([]models.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Presence{}
	for _, p := range f.records[rundownID] {
		if !p.LastHeartbeat.Before(cutoff) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out, nil
}

func (f *fakePresenceRepo) ClaimControl(ctx context.Context, rundownID, actor string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records[rundownID] == nil {
		f.records[rundownID] = make(map[string]models.Presence)
	}
	for key, p := range f.records[rundownID] {
		p.Controller = false
		f.records[rundownID][key] = p
	}
	p := f.records[rundownID][actor]
	p.RundownID = rundownID
	p.Actor = actor
	p.Controller = true
	p.LastHeartbeat = now
	f.records[rundownID][actor] = p
	return nil
}

func (f *fakePresenceRepo) Controller(ctx context.Context, rundownID string, cutoff time.Time) (*models.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.records[rundownID] {
		if p.Controller && !p.LastHeartbeat.Before(cutoff) {
			cp := p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("controller for %s: %w", rundownID, domain.ErrNotFound)
}

func (f *fakePresenceRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for rundownID, actors := range f.records {
		for actor, p := range actors {
			if p.LastHeartbeat.Before(cutoff) {
				delete(actors, actor)
				deleted++
			}
		}
		if len(actors) == 0 {
			delete(f.records, rundownID)
		}
	}
	return deleted, nil
}

// fakeTxManager runs the function directly; the fakes have no
// transactional state to roll back.
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeNotifier) Publish(event models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) all() []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Event, len(f.events))
	copy(out, f.events)
	return out
}

func testTuning() *tuning.Tuning {
	return &tuning.Tuning{
		Guard:      tuning.GuardTuning{WipeThreshold: 20},
		Snapshots:  tuning.SnapshotTuning{StructureFixedCount: 5, StructurePercent: 20, PeriodicMinutes: 10, MaxPerRundown: 50},
		History:    tuning.HistoryTuning{BatchWindowSeconds: 30, PageSize: 200},
		Presence:   tuning.PresenceTuning{LivenessMinutes: 3, SweepIntervalSeconds: 60},
		Operations: tuning.OperationsTuning{RetentionDays: 90, SweepIntervalHours: 24},
		Notify:     tuning.NotifyTuning{SubscriberBuffer: 64},
	}
}
