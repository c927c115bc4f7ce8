package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/collectiveminds/lab-booking/internal/model"
)

// ReservationRepo is the accessor between the booking core and the raw sheet
// store.  It owns all shaping and defense against malformed data: missing
// columns, blank cells and drifting date formats never escape this type.
// Results are cached in Redis for a short TTL; the cache is invalidated on
// every successful overwrite, so a load immediately after a write always
// sees the latest state.  A nil Redis client disables caching entirely.
type ReservationRepo struct {
	store SheetStore
	rdb   *redis.Client
	ttl   time.Duration
}

// NewReservationRepo returns an accessor over the given sheet store.  rdb
// may be nil; ttl only applies when it is not.
func NewReservationRepo(store SheetStore, rdb *redis.Client, ttl time.Duration) *ReservationRepo {
	if store == nil {
		panic("nil sheet store passed to NewReservationRepo")
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &ReservationRepo{store: store, rdb: rdb, ttl: ttl}
}

func cacheKey(worksheet string) string { return "resv:" + worksheet }

// Load returns the room's reservation set, served from cache when a fresh
// enough snapshot exists.  An empty or malformed worksheet yields an empty,
// well-shaped set, never an error; only an unreachable store fails, wrapped
// in ErrStoreUnavailable.
func (r *ReservationRepo) Load(ctx context.Context, room *model.Room) ([]model.Reservation, error) {
	if r.rdb != nil {
		if b, err := r.rdb.Get(ctx, cacheKey(room.Worksheet)).Bytes(); err == nil {
			var set []model.Reservation
			if json.Unmarshal(b, &set) == nil {
				return set, nil
			}
		}
	}
	return r.LoadFresh(ctx, room)
}

// LoadFresh bypasses the cache and reads the authoritative set from the
// backing store, refreshing the cache on the way out.  The booking service
// calls this immediately before every overwrite to shrink the race window.
func (r *ReservationRepo) LoadFresh(ctx context.Context, room *model.Room) ([]model.Reservation, error) {
	t, err := r.store.Read(ctx, room.Worksheet)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreUnavailable, room.Worksheet, err)
	}
	set := Shape(t)
	r.cacheSet(ctx, room, set)
	return set, nil
}

// Replace overwrites the room's whole backing collection with set and
// invalidates the cache.  This is the only write primitive; append and
// remove are both expressed as a full replace by the caller.
func (r *ReservationRepo) Replace(ctx context.Context, room *model.Room, set []model.Reservation) error {
	t := &Table{Columns: append([]string(nil), SheetColumns...)}
	for _, v := range set {
		t.Rows = append(t.Rows, []string{v.Researcher, v.Equipment, v.Date, v.StartTime, v.EndTime, v.CreatedAt})
	}
	if err := r.store.Overwrite(ctx, room.Worksheet, t); err != nil {
		return fmt.Errorf("%w: overwrite %s: %v", ErrStoreUnavailable, room.Worksheet, err)
	}
	r.Invalidate(ctx, room)
	return nil
}

// Invalidate drops the cached snapshot for the room, if any.
func (r *ReservationRepo) Invalidate(ctx context.Context, room *model.Room) {
	if r.rdb == nil {
		return
	}
	_ = r.rdb.Del(ctx, cacheKey(room.Worksheet)).Err()
}

func (r *ReservationRepo) cacheSet(ctx context.Context, room *model.Room, set []model.Reservation) {
	if r.rdb == nil {
		return
	}
	if b, err := json.Marshal(set); err == nil {
		_ = r.rdb.SetEx(ctx, cacheKey(room.Worksheet), b, r.ttl).Err()
	}
}

// Shape converts a raw worksheet snapshot into reservations.  A nil table,
// a table missing any required column, or one with no rows all shape to an
// empty set.  Cells are trimmed and dates normalized so downstream string
// comparisons are always well-defined.
func Shape(t *Table) []model.Reservation {
	set := []model.Reservation{}
	if t == nil || len(t.Rows) == 0 {
		return set
	}
	if !t.HasColumns(SheetColumns...) {
		return set
	}
	res := t.Index(ColResearcher)
	equ := t.Index(ColEquipment)
	dat := t.Index(ColDate)
	sta := t.Index(ColStartTime)
	end := t.Index(ColEndTime)
	cre := t.Index(ColCreatedAt)
	for i := range t.Rows {
		set = append(set, model.Reservation{
			Researcher: strings.TrimSpace(t.Cell(i, res)),
			Equipment:  strings.TrimSpace(t.Cell(i, equ)),
			Date:       NormalizeDate(t.Cell(i, dat)),
			StartTime:  strings.TrimSpace(t.Cell(i, sta)),
			EndTime:    strings.TrimSpace(t.Cell(i, end)),
			CreatedAt:  strings.TrimSpace(t.Cell(i, cre)),
		})
	}
	return set
}

// Date forms the backing service has been seen to infer.  Everything is
// folded back into the canonical YYYY-MM-DD string.
var dateLayouts = []string{
	model.DateLayout,
	model.CreatedAtLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// NormalizeDate returns the canonical YYYY-MM-DD form of a date cell.
// Unparseable values pass through trimmed; they will simply never match a
// proposal's date, which is the safe failure mode.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout)
		}
	}
	return s
}
