// Package address keeps the province, district and ward select fields of
// a form consistent with option lists fetched from a remote source.
//
// Each field moves through Idle (no parent value), Loading (fetch in
// flight) and Ready (options known). A parent change bumps the child's
// generation so a response for an older parent is dropped when it lands.
package address

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/metrics"
)

// State is the lifecycle state of one cascade field.
type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

// provincesKey is the parent key of the province field, which only
// depends on the record existing.
const provincesKey = "*"

// Source fetches option lists. Implementations return an error for
// network failures and non-2xx responses.
type Source interface {
	Provinces(ctx context.Context) ([]domain.Province, error)
	Districts(ctx context.Context, provinceCode string) ([]domain.District, error)
	Wards(ctx context.Context, districtCode string) ([]domain.Ward, error)
}

// Field is a snapshot of one cascade field.
type Field struct {
	Level   domain.AddressLevel
	State   State
	Key     string // parent value the options belong to
	Options []domain.Option
}

// Has reports whether value is one of the field's ready options.
func (f Field) Has(value string) bool {
	if f.State != Ready || value == "" {
		return false
	}
	return slices.ContainsFunc(f.Options, func(o domain.Option) bool { return o.Value == value })
}

// Ticket identifies one fetch started by Begin.
type Ticket struct {
	Level domain.AddressLevel
	Key   string
	gen   uint64
}

// Policy controls how stale descendant values are treated.
type Policy struct {
	// ClearStaleOnSave makes Clean drop district and ward codes that are
	// not among the options of their current parent.
	ClearStaleOnSave bool
}

type fieldState struct {
	state   State
	key     string
	gen     uint64
	options []domain.Option
}

// Resolver owns the three cascade fields of one form instance.
// It is safe for concurrent use.
type Resolver struct {
	source  Source
	enabled bool
	policy  Policy
	logger  *slog.Logger

	mu     sync.Mutex
	fields [3]fieldState
	cache  *Cache
}

// NewResolver returns a resolver for one form. A disabled resolver, used
// while the record does not exist yet, stays Idle and never fetches.
func NewResolver(source Source, enabled bool, policy Policy, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:  source,
		enabled: enabled,
		policy:  policy,
		logger:  logger,
		cache:   NewCache(),
	}
}

// Enabled reports whether the address block is active for this form.
func (r *Resolver) Enabled() bool {
	return r.enabled
}

// Begin records that level's parent value is now key.
//
// It reports whether the caller must fetch; the fetch result goes to
// Complete with the returned ticket. No fetch is needed when key is empty
// (the field goes Idle) or the options for key are cached (the field goes
// Ready immediately).
func (r *Resolver) Begin(level domain.AddressLevel, key string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &r.fields[level]
	f.gen++
	f.key = key
	t := Ticket{Level: level, Key: key, gen: f.gen}

	if !r.enabled || key == "" {
		f.state = Idle
		f.options = nil
		return t, false
	}

	if opts, ok := r.cache.Get(level, key); ok {
		f.state = Ready
		f.options = opts
		metrics.OptionFetch(level.String(), "hit")
		return t, false
	}

	f.state = Loading
	f.options = nil
	return t, true
}

// Complete applies the result of the fetch started with t. It returns
// false, changing nothing, when the field's parent moved on since Begin.
// A failed fetch leaves the field Ready with no options and is not cached.
func (r *Resolver) Complete(t Ticket, opts []domain.Option, err error) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &r.fields[t.Level]
	if f.gen != t.gen {
		metrics.OptionFetch(t.Level.String(), "stale")
		r.log().Debug("discarded stale options", "level", t.Level.String(), "key", t.Key, "current", f.key)
		return false
	}

	f.state = Ready
	if err != nil {
		f.options = []domain.Option{}
		metrics.OptionFetch(t.Level.String(), "failed")
		r.log().Warn("option fetch failed", "level", t.Level.String(), "key", t.Key, "error", err)
		return true
	}

	r.cache.Put(t.Level, t.Key, opts)
	f.options, _ = r.cache.Get(t.Level, t.Key)
	metrics.OptionFetch(t.Level.String(), "fetched")
	return true
}

// Resolve points level at key and, if needed, fetches its options before
// returning the field. When a newer Resolve for the same level finishes
// first, the returned snapshot reflects that newer parent.
func (r *Resolver) Resolve(ctx context.Context, level domain.AddressLevel, key string) Field {
	t, fetch := r.Begin(level, key)
	if fetch {
		opts, err := r.fetch(ctx, level, key)
		r.Complete(t, opts, err)
	}
	return r.Field(level)
}

// Sync brings all three fields in line with sel. Fields whose parent
// value did not change are left alone. The ward field only follows a
// district that is one of the current district options.
func (r *Resolver) Sync(ctx context.Context, sel domain.AddressSelection) [3]Field {
	r.follow(ctx, domain.LevelProvince, provincesKey)
	r.follow(ctx, domain.LevelDistrict, sel.ProvinceCode)

	wardParent := ""
	if r.Confirmed(domain.LevelDistrict, sel.DistrictCode) {
		wardParent = sel.DistrictCode
	}
	r.follow(ctx, domain.LevelWard, wardParent)

	return r.Fields()
}

func (r *Resolver) follow(ctx context.Context, level domain.AddressLevel, key string) {
	r.mu.Lock()
	f := r.fields[level]
	r.mu.Unlock()

	if f.key == key && f.state != Idle {
		return
	}
	if f.key == key && key == "" {
		return
	}
	r.Resolve(ctx, level, key)
}

// Field returns a snapshot of level.
func (r *Resolver) Field(level domain.AddressLevel) Field {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.fields[level]
	return Field{
		Level:   level,
		State:   f.state,
		Key:     f.key,
		Options: slices.Clone(f.options),
	}
}

// Fields returns snapshots of all three fields.
func (r *Resolver) Fields() [3]Field {
	return [3]Field{
		r.Field(domain.LevelProvince),
		r.Field(domain.LevelDistrict),
		r.Field(domain.LevelWard),
	}
}

// Confirmed reports whether value is a ready option of level under its
// current parent.
func (r *Resolver) Confirmed(level domain.AddressLevel, value string) bool {
	return r.Field(level).Has(value)
}

// Align returns fields as they apply to sel. A field whose options belong
// to another parent value than the one sel names is reported Loading with
// no options, or Idle when sel has no parent value for it. A response built
// from the result never pairs a parent with another parent's options.
func Align(sel domain.AddressSelection, fields [3]Field) [3]Field {
	district := &fields[domain.LevelDistrict]
	if district.Key != sel.ProvinceCode {
		*district = pending(domain.LevelDistrict, sel.ProvinceCode)
	}

	wardParent := ""
	if district.Has(sel.DistrictCode) {
		wardParent = sel.DistrictCode
	}
	ward := &fields[domain.LevelWard]
	if ward.Key != wardParent {
		*ward = pending(domain.LevelWard, wardParent)
	}
	return fields
}

func pending(level domain.AddressLevel, key string) Field {
	if key == "" {
		return Field{Level: level, State: Idle}
	}
	return Field{Level: level, State: Loading, Key: key}
}

// Clean applies the policy to sel before it is saved. Without
// ClearStaleOnSave the selection is returned unchanged.
func (r *Resolver) Clean(sel domain.AddressSelection) domain.AddressSelection {
	if !r.policy.ClearStaleOnSave {
		return sel
	}
	district := r.Field(domain.LevelDistrict)
	if district.Key != sel.ProvinceCode || !district.Has(sel.DistrictCode) {
		sel.DistrictCode = ""
		sel.WardCode = ""
		return sel
	}
	ward := r.Field(domain.LevelWard)
	if ward.Key != sel.DistrictCode || !ward.Has(sel.WardCode) {
		sel.WardCode = ""
	}
	return sel
}

func (r *Resolver) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

func (r *Resolver) fetch(ctx context.Context, level domain.AddressLevel, key string) ([]domain.Option, error) {
	switch level {
	case domain.LevelProvince:
		ps, err := r.source.Provinces(ctx)
		if err != nil {
			return nil, err
		}
		return domain.ProvinceOptions(ps), nil
	case domain.LevelDistrict:
		ds, err := r.source.Districts(ctx, key)
		if err != nil {
			return nil, err
		}
		return domain.DistrictOptions(ds), nil
	default:
		ws, err := r.source.Wards(ctx, key)
		if err != nil {
			return nil, err
		}
		return domain.WardOptions(ws), nil
	}
}
