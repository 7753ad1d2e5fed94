package address

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves fixed data and counts calls per key. A key listed in
// gates blocks until its channel is closed.
type fakeSource struct {
	mu        sync.Mutex
	calls     map[string]int
	districts map[string][]domain.District
	wards     map[string][]domain.Ward
	fail      map[string]bool
	gates     map[string]chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: map[string]int{},
		districts: map[string][]domain.District{
			"01": {{Code: "001", Name: "A"}},
			"02": {{Code: "020", Name: "B"}, {Code: "021", Name: "C"}},
		},
		wards: map[string][]domain.Ward{
			"001": {{Code: "00001", Name: "W1"}},
			"020": {{Code: "00200", Name: "W2"}},
		},
		fail:  map[string]bool{},
		gates: map[string]chan struct{}{},
	}
}

func (s *fakeSource) record(key string) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[key]++
	return s.gates[key], s.fail[key]
}

func (s *fakeSource) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *fakeSource) Provinces(ctx context.Context) ([]domain.Province, error) {
	s.record("provinces")
	return []domain.Province{{Code: "01", Name: "Hà Nội"}, {Code: "02", Name: "Hà Giang"}}, nil
}

func (s *fakeSource) Districts(ctx context.Context, code string) ([]domain.District, error) {
	gate, fail := s.record("p:" + code)
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("503 Service Unavailable")
	}
	return s.districts[code], nil
}

func (s *fakeSource) Wards(ctx context.Context, code string) ([]domain.Ward, error) {
	gate, fail := s.record("d:" + code)
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, errors.New("timeout")
	}
	return s.wards[code], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolver_DisabledNeverFetches(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src, false, Policy{}, testLogger())

	fields := r.Sync(context.Background(), domain.AddressSelection{ProvinceCode: "01"})

	for _, f := range fields {
		assert.Equal(t, Idle, f.State)
	}
	assert.Equal(t, 0, src.count("provinces"))
	assert.Equal(t, 0, src.count("p:01"))
}

func TestResolver_IdleWithoutParent(t *testing.T) {
	r := NewResolver(newFakeSource(), true, Policy{}, testLogger())

	fields := r.Sync(context.Background(), domain.AddressSelection{})

	assert.Equal(t, Ready, fields[domain.LevelProvince].State)
	assert.Len(t, fields[domain.LevelProvince].Options, 2)
	assert.Equal(t, Idle, fields[domain.LevelDistrict].State)
	assert.Equal(t, Idle, fields[domain.LevelWard].State)
}

func TestResolver_RevertToCachedParentDoesNotRefetch(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src, true, Policy{}, testLogger())
	ctx := context.Background()

	first := r.Resolve(ctx, domain.LevelDistrict, "01")
	r.Resolve(ctx, domain.LevelDistrict, "02")
	back := r.Resolve(ctx, domain.LevelDistrict, "01")

	assert.Equal(t, 1, src.count("p:01"))
	assert.Equal(t, 1, src.count("p:02"))
	assert.Equal(t, Ready, back.State)
	assert.Equal(t, first.Options, back.Options)
	assert.Equal(t, []domain.Option{{Value: "001", Label: "A"}}, back.Options)
}

func TestResolver_StaleResponseDiscarded(t *testing.T) {
	r := NewResolver(newFakeSource(), true, Policy{}, testLogger())

	t01, fetch := r.Begin(domain.LevelDistrict, "01")
	require.True(t, fetch)
	t02, fetch := r.Begin(domain.LevelDistrict, "02")
	require.True(t, fetch)

	assert.Equal(t, Loading, r.Field(domain.LevelDistrict).State)

	opts02 := []domain.Option{{Value: "020", Label: "B"}}
	assert.True(t, r.Complete(t02, opts02, nil))
	assert.False(t, r.Complete(t01, []domain.Option{{Value: "001", Label: "A"}}, nil))

	f := r.Field(domain.LevelDistrict)
	assert.Equal(t, "02", f.Key)
	assert.Equal(t, opts02, f.Options)
}

// Province "01" is fetched; the user picks a district, then switches to
// "02" while the slow "01" district fetch is still in flight.
func TestResolver_RaceShowsLatestParentOnly(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.gates["p:01"] = gate
	r := NewResolver(src, true, Policy{}, testLogger())
	ctx := context.Background()

	done := make(chan Field)
	go func() { done <- r.Resolve(ctx, domain.LevelDistrict, "01") }()

	require.Eventually(t, func() bool { return src.count("p:01") == 1 }, time.Second, time.Millisecond)

	latest := r.Resolve(ctx, domain.LevelDistrict, "02")
	assert.Equal(t, "02", latest.Key)

	close(gate)
	slow := <-done

	want := []domain.Option{{Value: "020", Label: "B"}, {Value: "021", Label: "C"}}
	assert.Equal(t, want, slow.Options, "the late 01 response must not win")
	assert.Equal(t, want, r.Field(domain.LevelDistrict).Options)
}

func TestResolver_FailureGivesEmptyReadyAndIsNotCached(t *testing.T) {
	src := newFakeSource()
	src.fail["p:01"] = true
	r := NewResolver(src, true, Policy{}, testLogger())
	ctx := context.Background()

	f := r.Resolve(ctx, domain.LevelDistrict, "01")
	assert.Equal(t, Ready, f.State)
	assert.Empty(t, f.Options)

	src.mu.Lock()
	src.fail["p:01"] = false
	src.mu.Unlock()

	r.Resolve(ctx, domain.LevelDistrict, "02")
	f = r.Resolve(ctx, domain.LevelDistrict, "01")

	assert.Equal(t, 2, src.count("p:01"), "reselecting the parent retries")
	assert.Len(t, f.Options, 1)
}

func TestResolver_SyncKeepsStaleDescendantButIdlesWard(t *testing.T) {
	src := newFakeSource()
	r := NewResolver(src, true, Policy{}, testLogger())
	ctx := context.Background()

	sel := domain.AddressSelection{ProvinceCode: "01", DistrictCode: "001", WardCode: "00001"}
	fields := r.Sync(ctx, sel)
	require.Equal(t, Ready, fields[domain.LevelWard].State)
	assert.True(t, r.Confirmed(domain.LevelWard, "00001"))

	sel = sel.With(domain.LevelProvince, "02")
	fields = r.Sync(ctx, sel)

	assert.Equal(t, "001", sel.DistrictCode, "values are not cleared")
	assert.False(t, r.Confirmed(domain.LevelDistrict, "001"))
	assert.Equal(t, Idle, fields[domain.LevelWard].State)
	assert.Equal(t, 1, src.count("provinces"))
}

func TestResolver_Clean(t *testing.T) {
	ctx := context.Background()
	stale := domain.AddressSelection{ProvinceCode: "02", DistrictCode: "001", WardCode: "00001"}

	keep := NewResolver(newFakeSource(), true, Policy{}, testLogger())
	keep.Sync(ctx, stale)
	assert.Equal(t, stale, keep.Clean(stale))

	strict := NewResolver(newFakeSource(), true, Policy{ClearStaleOnSave: true}, testLogger())
	strict.Sync(ctx, stale)
	assert.Equal(t, domain.AddressSelection{ProvinceCode: "02"}, strict.Clean(stale))

	valid := domain.AddressSelection{ProvinceCode: "02", DistrictCode: "020", WardCode: "99999"}
	strict.Sync(ctx, valid)
	assert.Equal(t, domain.AddressSelection{ProvinceCode: "02", DistrictCode: "020"}, strict.Clean(valid))
}

func TestRegistry(t *testing.T) {
	g := NewRegistry(newFakeSource(), Policy{}, testLogger())

	a := g.Get("draft-1", true)
	assert.Same(t, a, g.Get("draft-1", false))
	assert.True(t, a.Enabled())

	assert.Equal(t, 0, g.Purge(time.Now().Add(-time.Minute)))
	assert.Equal(t, 1, g.Purge(time.Now().Add(time.Minute)))
	assert.NotSame(t, a, g.Get("draft-1", true))

	g.Drop("draft-1")
	assert.Equal(t, 0, g.Purge(time.Now().Add(time.Minute)))
}

func TestResolver_NilLogger(t *testing.T) {
	src := newFakeSource()
	src.fail["p:02"] = true
	r := NewResolver(src, true, Policy{}, nil)

	t01, _ := r.Begin(domain.LevelDistrict, "01")
	r.Begin(domain.LevelDistrict, "02")
	assert.NotPanics(t, func() { r.Complete(t01, nil, nil) }, "stale path")
	assert.NotPanics(t, func() { r.Resolve(context.Background(), domain.LevelDistrict, "02") }, "failed path")

	g := NewRegistry(src, Policy{}, nil)
	assert.NotPanics(t, func() { g.Get("draft-1", true) })
}

func TestAlign(t *testing.T) {
	province := Field{Level: domain.LevelProvince, State: Ready, Key: provincesKey, Options: []domain.Option{{Value: "01"}, {Value: "02"}}}
	districts02 := Field{Level: domain.LevelDistrict, State: Ready, Key: "02", Options: []domain.Option{{Value: "020", Label: "B"}}}
	wards020 := Field{Level: domain.LevelWard, State: Ready, Key: "020", Options: []domain.Option{{Value: "00200", Label: "W2"}}}

	tests := []struct {
		name         string
		sel          domain.AddressSelection
		fields       [3]Field
		wantDistrict Field
		wantWard     Field
	}{
		{
			name:         "matching parents are kept",
			sel:          domain.AddressSelection{ProvinceCode: "02", DistrictCode: "020"},
			fields:       [3]Field{province, districts02, wards020},
			wantDistrict: districts02,
			wantWard:     wards020,
		},
		{
			name:         "options of another province are withheld",
			sel:          domain.AddressSelection{ProvinceCode: "01", DistrictCode: "020"},
			fields:       [3]Field{province, districts02, wards020},
			wantDistrict: Field{Level: domain.LevelDistrict, State: Loading, Key: "01"},
			wantWard:     Field{Level: domain.LevelWard, State: Idle},
		},
		{
			name:         "ward of an unconfirmed district goes idle",
			sel:          domain.AddressSelection{ProvinceCode: "02", DistrictCode: "999", WardCode: "00200"},
			fields:       [3]Field{province, districts02, wards020},
			wantDistrict: districts02,
			wantWard:     Field{Level: domain.LevelWard, State: Idle},
		},
		{
			name:         "no province means idle district",
			sel:          domain.AddressSelection{},
			fields:       [3]Field{province, districts02, wards020},
			wantDistrict: Field{Level: domain.LevelDistrict, State: Idle},
			wantWard:     Field{Level: domain.LevelWard, State: Idle},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Align(tt.sel, tt.fields)
			assert.Equal(t, province, got[domain.LevelProvince])
			assert.Equal(t, tt.wantDistrict, got[domain.LevelDistrict])
			assert.Equal(t, tt.wantWard, got[domain.LevelWard])
		})
	}
}
