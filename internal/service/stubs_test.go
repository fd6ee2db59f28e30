package service

import (
	"context"
	"fmt"
	"time"

	"gmcore/internal/model"
	"gmcore/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory repository stubs. DB() returns nil so runTx executes the
// transaction body directly. Reads hand out copies so a failed operation
// leaves the stored state untouched, matching rollback semantics.

// ── Inventory ────────────────────────────────────────────────────────────────

type stubInventoryRepo struct {
	items        map[uuid.UUID]*model.InventoryItem
	itemOrder    []uuid.UUID
	reservations map[uuid.UUID]*model.StockReservation
	movements    []model.StockMovement
}

func newStubInventoryRepo() *stubInventoryRepo {
	return &stubInventoryRepo{
		items:        map[uuid.UUID]*model.InventoryItem{},
		reservations: map[uuid.UUID]*model.StockReservation{},
	}
}

func (r *stubInventoryRepo) put(item *model.InventoryItem) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, known := r.items[item.ID]; !known {
		r.itemOrder = append(r.itemOrder, item.ID)
	}
	cp := *item
	r.items[item.ID] = &cp
}

func (r *stubInventoryRepo) Create(ctx context.Context, item *model.InventoryItem) error {
	r.put(item)
	return nil
}

func (r *stubInventoryRepo) CreateTx(tx *gorm.DB, item *model.InventoryItem) error {
	r.put(item)
	return nil
}

func (r *stubInventoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *stubInventoryRepo) FindByIDForUpdate(tx *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubInventoryRepo) findByRef(refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	for _, id := range r.itemOrder {
		item := r.items[id]
		if item.RefKind == refKind && item.RefID == refID && item.LocationID == locationID {
			cp := *item
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInventoryRepo) FindByRef(ctx context.Context, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	return r.findByRef(refKind, refID, locationID)
}

func (r *stubInventoryRepo) FindByRefForUpdate(tx *gorm.DB, refKind string, refID, locationID uuid.UUID) (*model.InventoryItem, error) {
	return r.findByRef(refKind, refID, locationID)
}

func (r *stubInventoryRepo) List(ctx context.Context, filter repository.ItemFilter) ([]model.InventoryItem, int64, error) {
	var out []model.InventoryItem
	for _, id := range r.itemOrder {
		item := r.items[id]
		if filter.LocationID != nil && item.LocationID != *filter.LocationID {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) ListActiveByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryItem, error) {
	var out []model.InventoryItem
	for _, id := range r.itemOrder {
		item := r.items[id]
		if item.LocationID == locationID && item.Status == "active" {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *stubInventoryRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, id := range r.itemOrder {
		if r.items[id].Status == "active" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *stubInventoryRepo) SaveTx(tx *gorm.DB, item *model.InventoryItem) error {
	r.put(item)
	return nil
}

func (r *stubInventoryRepo) Update(ctx context.Context, item *model.InventoryItem) error {
	r.put(item)
	return nil
}

func (r *stubInventoryRepo) CreateReservationTx(tx *gorm.DB, res *model.StockReservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	cp := *res
	r.reservations[res.ID] = &cp
	return nil
}

func (r *stubInventoryRepo) FindReservationForUpdate(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error) {
	res, ok := r.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *stubInventoryRepo) SaveReservationTx(tx *gorm.DB, res *model.StockReservation) error {
	cp := *res
	r.reservations[res.ID] = &cp
	return nil
}

func (r *stubInventoryRepo) CreateMovementTx(tx *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubInventoryRepo) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if filter.ItemID != nil && m.ItemID != *filter.ItemID {
			continue
		}
		if filter.LocationID != nil && m.LocationID != *filter.LocationID {
			continue
		}
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) DB() *gorm.DB { return nil }

// ── Locations ────────────────────────────────────────────────────────────────

type stubLocationRepo struct {
	locations   map[uuid.UUID]*model.Location
	assignments []model.StaffAssignment
}

func newStubLocationRepo() *stubLocationRepo {
	return &stubLocationRepo{locations: map[uuid.UUID]*model.Location{}}
}

func (r *stubLocationRepo) Create(ctx context.Context, l *model.Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.locations[l.ID] = &cp
	return nil
}

func (r *stubLocationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Location, error) {
	l, ok := r.locations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *stubLocationRepo) FindByCode(ctx context.Context, code string) (*model.Location, error) {
	for _, l := range r.locations {
		if l.Code == code {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLocationRepo) ListActive(ctx context.Context) ([]model.Location, error) {
	var out []model.Location
	for _, l := range r.locations {
		if l.Active {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubLocationRepo) Save(ctx context.Context, l *model.Location) error {
	cp := *l
	r.locations[l.ID] = &cp
	return nil
}

func (r *stubLocationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	if l, ok := r.locations[id]; ok {
		l.Active = false
	}
	return nil
}

func (r *stubLocationRepo) CreateAssignment(ctx context.Context, a *model.StaffAssignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *stubLocationRepo) FindActiveAssignment(ctx context.Context, staffID, locationID uuid.UUID) (*model.StaffAssignment, error) {
	for i := range r.assignments {
		a := r.assignments[i]
		if a.StaffID == staffID && a.LocationID == locationID && a.Active {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubLocationRepo) SaveAssignment(ctx context.Context, a *model.StaffAssignment) error {
	for i := range r.assignments {
		if r.assignments[i].ID == a.ID {
			r.assignments[i] = *a
			return nil
		}
	}
	r.assignments = append(r.assignments, *a)
	return nil
}

func (r *stubLocationRepo) ListActiveAssignmentsByLocation(ctx context.Context, locationID uuid.UUID) ([]model.StaffAssignment, error) {
	var out []model.StaffAssignment
	for _, a := range r.assignments {
		if a.LocationID == locationID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubLocationRepo) ListActiveAssignmentsForStaff(ctx context.Context, staffID uuid.UUID) ([]model.StaffAssignment, error) {
	var out []model.StaffAssignment
	for _, a := range r.assignments {
		if a.StaffID == staffID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

// ── Alerts ───────────────────────────────────────────────────────────────────

type stubAlertRepo struct {
	alerts    map[uuid.UUID]*model.LowStockAlert
	order     []uuid.UUID
	inventory *stubInventoryRepo
}

func newStubAlertRepo(inventory *stubInventoryRepo) *stubAlertRepo {
	return &stubAlertRepo{alerts: map[uuid.UUID]*model.LowStockAlert{}, inventory: inventory}
}

func (r *stubAlertRepo) put(a *model.LowStockAlert) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
		a.CreatedAt = time.Now().UTC()
	}
	if _, known := r.alerts[a.ID]; !known {
		r.order = append(r.order, a.ID)
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	r.alerts[a.ID] = &cp
}

func (r *stubAlertRepo) FindActiveByItemForUpdate(tx *gorm.DB, itemID uuid.UUID) (*model.LowStockAlert, error) {
	for _, id := range r.order {
		a := r.alerts[id]
		if a.ItemID == itemID && a.Status == model.AlertActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAlertRepo) CreateTx(tx *gorm.DB, a *model.LowStockAlert) error {
	r.put(a)
	return nil
}

func (r *stubAlertRepo) SaveTx(tx *gorm.DB, a *model.LowStockAlert) error {
	r.put(a)
	return nil
}

func (r *stubAlertRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.LowStockAlert, error) {
	a, ok := r.alerts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubAlertRepo) Save(ctx context.Context, a *model.LowStockAlert) error {
	r.put(a)
	return nil
}

func (r *stubAlertRepo) withItem(a model.LowStockAlert) model.LowStockAlert {
	if item, ok := r.inventory.items[a.ItemID]; ok {
		cp := *item
		a.Item = &cp
	}
	return a
}

func (r *stubAlertRepo) ListActive(ctx context.Context, filter repository.AlertFilter) ([]model.LowStockAlert, error) {
	var out []model.LowStockAlert
	for _, id := range r.order {
		a := r.withItem(*r.alerts[id])
		if a.Status != model.AlertActive || a.Item == nil {
			continue
		}
		if filter.LocationID != nil && a.Item.LocationID != *filter.LocationID {
			continue
		}
		if len(filter.LocationIDs) > 0 && !containsID(filter.LocationIDs, a.Item.LocationID) {
			continue
		}
		if filter.Level != "" && a.Level != filter.Level {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *stubAlertRepo) ListTouchedSince(ctx context.Context, since time.Time) ([]model.LowStockAlert, error) {
	var out []model.LowStockAlert
	for _, id := range r.order {
		a := *r.alerts[id]
		if a.Status != model.AlertActive {
			continue
		}
		if a.CreatedAt.Before(since) && a.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, r.withItem(a))
	}
	return out, nil
}

func (r *stubAlertRepo) PurgeSettledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	kept := r.order[:0]
	for _, id := range r.order {
		a := r.alerts[id]
		settled := a.Status == model.AlertResolved || a.Status == model.AlertAcknowledged
		if settled && a.UpdatedAt.Before(cutoff) {
			delete(r.alerts, id)
			purged++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	return purged, nil
}

func (r *stubAlertRepo) DB() *gorm.DB { return nil }

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// ── Users ────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *stubUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) ListActiveAdmins(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.Role == "admin" && u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Save(ctx context.Context, u *model.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

// ── Notification intents ─────────────────────────────────────────────────────

type stubNotificationRepo struct {
	intents map[uuid.UUID]*model.NotificationIntent
	byKey   map[string]uuid.UUID
	order   []uuid.UUID
}

func newStubNotificationRepo() *stubNotificationRepo {
	return &stubNotificationRepo{
		intents: map[uuid.UUID]*model.NotificationIntent{},
		byKey:   map[string]uuid.UUID{},
	}
}

func (r *stubNotificationRepo) CreateIfAbsent(ctx context.Context, n *model.NotificationIntent) (bool, error) {
	if _, exists := r.byKey[n.IdempotencyKey]; exists {
		return false, nil
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	cp := *n
	r.intents[n.ID] = &cp
	r.byKey[n.IdempotencyKey] = n.ID
	r.order = append(r.order, n.ID)
	return true, nil
}

func (r *stubNotificationRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificationIntent, error) {
	n, ok := r.intents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *stubNotificationRepo) Save(ctx context.Context, n *model.NotificationIntent) error {
	cp := *n
	cp.UpdatedAt = time.Now().UTC()
	r.intents[n.ID] = &cp
	return nil
}

func (r *stubNotificationRepo) ListRedeliverable(ctx context.Context, maxAttempts int, failedBefore time.Time) ([]model.NotificationIntent, error) {
	var out []model.NotificationIntent
	for _, id := range r.order {
		n := r.intents[id]
		if n.Status == model.IntentFailed && n.Attempts < maxAttempts && n.UpdatedAt.Before(failedBefore) {
			out = append(out, *n)
		}
	}
	return out, nil
}

type stubEnqueuer struct {
	enqueued []uuid.UUID
	fail     error
}

func (q *stubEnqueuer) EnqueueNotification(ctx context.Context, intentID uuid.UUID) error {
	if q.fail != nil {
		return q.fail
	}
	q.enqueued = append(q.enqueued, intentID)
	return nil
}

// ── Activity journal ─────────────────────────────────────────────────────────

type stubActivityRepo struct {
	entries []model.ActivityEntry
}

func newStubActivityRepo() *stubActivityRepo { return &stubActivityRepo{} }

func (r *stubActivityRepo) Create(ctx context.Context, e *model.ActivityEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubActivityRepo) CreateTx(tx *gorm.DB, e *model.ActivityEntry) error {
	return r.Create(context.Background(), e)
}

func (r *stubActivityRepo) ListForUser(ctx context.Context, userID uuid.UUID, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	var out []model.ActivityEntry
	for _, e := range r.entries {
		if e.SubjectID != nil && *e.SubjectID == userID && matchesActivityFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubActivityRepo) ListRecent(ctx context.Context, filter repository.ActivityFilter) ([]model.ActivityEntry, error) {
	var out []model.ActivityEntry
	for _, e := range r.entries {
		if matchesActivityFilter(e, filter) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchesActivityFilter(e model.ActivityEntry, filter repository.ActivityFilter) bool {
	if filter.Type != "" && e.Type != filter.Type {
		return false
	}
	if filter.Category != "" && e.Category != filter.Category {
		return false
	}
	if filter.From != nil && e.OccurredAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !e.OccurredAt.Before(*filter.To) {
		return false
	}
	return true
}

func (r *stubActivityRepo) AggregateWindow(ctx context.Context, from, to time.Time) (*repository.WindowCounts, error) {
	counts := &repository.WindowCounts{}
	subjects := map[uuid.UUID]bool{}
	var durTotal, durN int
	for _, e := range r.entries {
		if e.OccurredAt.Before(from) || !e.OccurredAt.Before(to) {
			continue
		}
		switch {
		case e.Type == "registration":
			counts.NewRegistrations++
		case e.Type == "authentication" && e.Action == "login" && e.Success:
			counts.Logins++
		case e.Type == "authentication" && e.Action == "login" && !e.Success:
			counts.FailedLogins++
		}
		if e.Type == "page_view" {
			counts.PageViews++
		}
		if e.Category == "user_action" {
			counts.ServiceActions++
		}
		if !e.Success {
			counts.Errors++
		}
		if e.SubjectID != nil {
			subjects[*e.SubjectID] = true
		}
		if e.DurationMs != nil {
			durTotal += *e.DurationMs
			durN++
		}
	}
	counts.ActiveUsers = len(subjects)
	if durN > 0 {
		counts.AvgResponseMs = float64(durTotal) / float64(durN)
	}
	return counts, nil
}

func (r *stubActivityRepo) DB() *gorm.DB { return nil }

// ── Sessions ─────────────────────────────────────────────────────────────────

type stubSessionRepo struct {
	sessions map[string]*model.LoginSession
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: map[string]*model.LoginSession{}}
}

func (r *stubSessionRepo) Create(ctx context.Context, s *model.LoginSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sessions[s.SessionToken] = &cp
	return nil
}

func (r *stubSessionRepo) FindByToken(ctx context.Context, token string) (*model.LoginSession, error) {
	s, ok := r.sessions[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSessionRepo) Save(ctx context.Context, s *model.LoginSession) error {
	cp := *s
	r.sessions[s.SessionToken] = &cp
	return nil
}

func (r *stubSessionRepo) BumpCounters(ctx context.Context, token string, pageViews, actions int, lastSeen time.Time) error {
	s, ok := r.sessions[token]
	if !ok || !s.Active {
		return nil
	}
	s.PageViews += pageViews
	s.ActionCount += actions
	s.LastSeenAt = lastSeen
	return nil
}

func (r *stubSessionRepo) CloseIdleBefore(ctx context.Context, cutoff time.Time, reason string) ([]string, error) {
	var tokens []string
	now := time.Now().UTC()
	for token, s := range r.sessions {
		if s.Active && s.LastSeenAt.Before(cutoff) {
			s.Active = false
			s.LogoutAt = &now
			s.LogoutReason = &reason
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func (r *stubSessionRepo) DB() *gorm.DB { return nil }

// ── Usage buckets ────────────────────────────────────────────────────────────

type stubUsageRepo struct {
	buckets map[string]*model.UsageBucket
}

func newStubUsageRepo() *stubUsageRepo {
	return &stubUsageRepo{buckets: map[string]*model.UsageBucket{}}
}

func usageKey(date time.Time, hour int) string {
	return fmt.Sprintf("%s#%d", date.UTC().Format("2006-01-02"), hour)
}

func (r *stubUsageRepo) Upsert(ctx context.Context, b *model.UsageBucket) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	cp := *b
	r.buckets[usageKey(b.Date, b.Hour)] = &cp
	return nil
}

func (r *stubUsageRepo) IncrementDaily(ctx context.Context, date time.Time, column string, delta int) error {
	day := date.UTC().Truncate(24 * time.Hour)
	key := usageKey(day, model.HourWholeDay)
	b, ok := r.buckets[key]
	if !ok {
		b = &model.UsageBucket{ID: uuid.New(), Date: day, Hour: model.HourWholeDay}
		r.buckets[key] = b
	}
	switch column {
	case "logins":
		b.Logins += delta
	case "failed_logins":
		b.FailedLogins += delta
	case "new_registrations":
		b.NewRegistrations += delta
	case "page_views":
		b.PageViews += delta
	}
	return nil
}

func (r *stubUsageRepo) Find(ctx context.Context, date time.Time, hour *int) (*model.UsageBucket, error) {
	h := model.HourWholeDay
	if hour != nil {
		h = *hour
	}
	b, ok := r.buckets[usageKey(date, h)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *stubUsageRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.UsageBucket, error) {
	var out []model.UsageBucket
	for _, b := range r.buckets {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// ── Secret keys ──────────────────────────────────────────────────────────────

type stubKeyRepo struct {
	keys []*model.SecretKey
}

func newStubKeyRepo() *stubKeyRepo { return &stubKeyRepo{} }

func (r *stubKeyRepo) FindActiveForUpdate(tx *gorm.DB, kind string) (*model.SecretKey, error) {
	return r.FindActive(context.Background(), kind)
}

func (r *stubKeyRepo) FindActive(ctx context.Context, kind string) (*model.SecretKey, error) {
	for _, k := range r.keys {
		if k.Kind == kind && k.Active {
			cp := *k
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubKeyRepo) FindPrevious(ctx context.Context, kind string) (*model.SecretKey, error) {
	var newest *model.SecretKey
	for _, k := range r.keys {
		if k.Kind != kind || k.Active {
			continue
		}
		if newest == nil || k.CreatedAt.After(newest.CreatedAt) {
			newest = k
		}
	}
	if newest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *newest
	return &cp, nil
}

func (r *stubKeyRepo) ListActive(ctx context.Context) ([]model.SecretKey, error) {
	var out []model.SecretKey
	for _, k := range r.keys {
		if k.Active {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *stubKeyRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]model.SecretKey, error) {
	var out []model.SecretKey
	for _, k := range r.keys {
		if k.Active && !k.ExpiresAt.After(deadline) {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (r *stubKeyRepo) SaveTx(tx *gorm.DB, key *model.SecretKey) error {
	for i, k := range r.keys {
		if k.ID == key.ID {
			cp := *key
			r.keys[i] = &cp
			return nil
		}
	}
	cp := *key
	r.keys = append(r.keys, &cp)
	return nil
}

func (r *stubKeyRepo) CreateTx(tx *gorm.DB, key *model.SecretKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	cp := *key
	r.keys = append(r.keys, &cp)
	return nil
}

func (r *stubKeyRepo) DB() *gorm.DB { return nil }

// ── Audits ───────────────────────────────────────────────────────────────────

type stubAuditRepo struct {
	audits map[uuid.UUID]*model.InventoryAudit
	lines  []*model.AuditLine
}

func newStubAuditRepo() *stubAuditRepo {
	return &stubAuditRepo{audits: map[uuid.UUID]*model.InventoryAudit{}}
}

func (r *stubAuditRepo) Create(ctx context.Context, a *model.InventoryAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	r.audits[a.ID] = &cp
	return nil
}

func (r *stubAuditRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryAudit, error) {
	a, ok := r.audits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubAuditRepo) Save(ctx context.Context, a *model.InventoryAudit) error {
	cp := *a
	r.audits[a.ID] = &cp
	return nil
}

func (r *stubAuditRepo) SaveTx(tx *gorm.DB, a *model.InventoryAudit) error {
	return r.Save(context.Background(), a)
}

func (r *stubAuditRepo) CreateLine(ctx context.Context, l *model.AuditLine) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	cp := *l
	r.lines = append(r.lines, &cp)
	return nil
}

func (r *stubAuditRepo) FindLine(ctx context.Context, auditID, itemID uuid.UUID) (*model.AuditLine, error) {
	for _, l := range r.lines {
		if l.AuditID == auditID && l.ItemID == itemID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubAuditRepo) SaveLine(ctx context.Context, line *model.AuditLine) error {
	for i, l := range r.lines {
		if l.ID == line.ID {
			cp := *line
			r.lines[i] = &cp
			return nil
		}
	}
	cp := *line
	r.lines = append(r.lines, &cp)
	return nil
}

func (r *stubAuditRepo) ListLines(ctx context.Context, auditID uuid.UUID) ([]model.AuditLine, error) {
	var out []model.AuditLine
	for _, l := range r.lines {
		if l.AuditID == auditID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]model.InventoryAudit, error) {
	var out []model.InventoryAudit
	for _, a := range r.audits {
		if a.LocationID == locationID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) DB() *gorm.DB { return nil }
