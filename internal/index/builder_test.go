package index

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/wiki/internal/apperr"
	"github.com/starford/wiki/internal/testutil"
)

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func TestAllTags_Dedup(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"p1": "#x #y",
		"p2": "#y",
	})
	got, err := NewBuilder(store).AllTags(context.Background())
	if err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if want := []string{"x", "y"}; !reflect.DeepEqual(sorted(got), want) {
		t.Errorf("tags = %v, want set %v", got, want)
	}
}

func TestAllTags_ConsecutiveDuplicates(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"dups": "#a #a #a #b #b #a",
	})
	got, err := NewBuilder(store).AllTags(context.Background())
	if err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(sorted(got), want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestAllTags_EmptyStore(t *testing.T) {
	_, store := testutil.TestStore(t, nil)
	got, err := NewBuilder(store).AllTags(context.Background())
	if err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("tags = %#v, want empty set", got)
	}
}

func TestAllTags_NoTags(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"plain": "nothing to see here",
	})
	got, err := NewBuilder(store).AllTags(context.Background())
	if err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("tags = %v, want none", got)
	}
}

func TestPagesWithTag_OncePerOccurrence(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"p1": "#x #y",
		"p2": "#y",
	})
	got, err := NewBuilder(store).PagesWithTag(context.Background(), "y")
	if err != nil {
		t.Fatalf("PagesWithTag: %v", err)
	}
	if want := []string{"p1", "p2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestPagesWithTag_DuplicatesKept(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"repeat": "#go and #go again",
	})
	got, err := NewBuilder(store).PagesWithTag(context.Background(), "go")
	if err != nil {
		t.Fatalf("PagesWithTag: %v", err)
	}
	if want := []string{"repeat", "repeat"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestPagesWithTag_Substring(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"pets":  "my #cat",
		"birds": "a #sparrow",
		"fish":  "a #trout",
	})
	got, err := NewBuilder(store).PagesWithTag(context.Background(), "a")
	if err != nil {
		t.Fatalf("PagesWithTag: %v", err)
	}
	if want := []string{"birds", "pets"}; !reflect.DeepEqual(got, want) {
		t.Errorf("pages = %v, want %v", got, want)
	}
}

func TestPagesWithTag_NoMatch(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"p1": "#x",
	})
	got, err := NewBuilder(store).PagesWithTag(context.Background(), "zzz")
	if err != nil {
		t.Fatalf("PagesWithTag: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("pages = %#v, want empty slice", got)
	}
}

func TestOccurrences_Order(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{
		"b": "#two #three",
		"a": "#one",
	})
	occ, err := NewBuilder(store).Occurrences(context.Background())
	if err != nil {
		t.Fatalf("Occurrences: %v", err)
	}
	var got []string
	for _, o := range occ {
		got = append(got, o.Slug+":"+o.Tag)
	}
	if want := []string{"a:one", "b:two", "b:three"}; !reflect.DeepEqual(got, want) {
		t.Errorf("occurrences = %v, want %v", got, want)
	}
}

func TestConcurrentScanMatchesSequential(t *testing.T) {
	pages := make(map[string]string)
	for i := 0; i < 40; i++ {
		pages[fmt.Sprintf("page-%02d", i)] = fmt.Sprintf("#t%d body #shared #t%d", i%7, i%3)
	}
	_, store := testutil.TestStore(t, pages)
	ctx := context.Background()

	seq, err := NewBuilder(store, WithConcurrency(1)).Occurrences(ctx)
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := NewBuilder(store, WithConcurrency(8)).Occurrences(ctx)
	if err != nil {
		t.Fatalf("concurrent: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Error("concurrent scan changed result order")
	}
}

// fakeStore is an in-memory storage.Provider with hooks for failure and
// concurrency tracking.
type fakeStore struct {
	pages    map[string]string
	order    []string
	listErr  error
	readErr  map[string]error
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	reads    []string
}

func (f *fakeStore) List() ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.order, nil
}

func (f *fakeStore) Read(slug string) ([]byte, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.reads = append(f.reads, slug)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.readErr[slug]; err != nil {
		return nil, err
	}
	body, ok := f.pages[slug]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", slug, apperr.ErrNotFound)
	}
	return []byte(body), nil
}

func (f *fakeStore) Write(slug string, content []byte) error {
	f.pages[slug] = string(content)
	return nil
}

func TestSequentialScan_OneReadAtATime(t *testing.T) {
	fs := &fakeStore{
		pages: map[string]string{"a": "#1", "b": "#2", "c": "#3"},
		order: []string{"a", "b", "c"},
		delay: 5 * time.Millisecond,
	}
	if _, err := NewBuilder(fs).AllTags(context.Background()); err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if p := fs.peak.Load(); p != 1 {
		t.Errorf("peak concurrent reads = %d, want 1", p)
	}
	if !reflect.DeepEqual(fs.reads, []string{"a", "b", "c"}) {
		t.Errorf("read order = %v", fs.reads)
	}
}

func TestBoundedScan_RespectsLimit(t *testing.T) {
	fs := &fakeStore{pages: map[string]string{}, delay: 5 * time.Millisecond}
	for i := 0; i < 12; i++ {
		s := fmt.Sprintf("p%d", i)
		fs.pages[s] = "#t"
		fs.order = append(fs.order, s)
	}
	if _, err := NewBuilder(fs, WithConcurrency(3)).AllTags(context.Background()); err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if p := fs.peak.Load(); p > 3 {
		t.Errorf("peak concurrent reads = %d, want <= 3", p)
	}
}

func TestScan_ListErrorPropagates(t *testing.T) {
	boom := errors.New("data dir unreadable")
	fs := &fakeStore{listErr: boom}
	if _, err := NewBuilder(fs).AllTags(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestScan_ReadErrorPropagates(t *testing.T) {
	boom := errors.New("permission denied")
	fs := &fakeStore{
		pages:   map[string]string{"a": "#x", "b": "#y"},
		order:   []string{"a", "b"},
		readErr: map[string]error{"b": boom},
	}
	if _, err := NewBuilder(fs).PagesWithTag(context.Background(), "x"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestScan_VanishedPageSkipped(t *testing.T) {
	fs := &fakeStore{
		pages: map[string]string{"a": "#x"},
		order: []string{"a", "gone"},
	}
	got, err := NewBuilder(fs).AllTags(context.Background())
	if err != nil {
		t.Fatalf("AllTags: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("tags = %v, want [x]", got)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	_, store := testutil.TestStore(t, map[string]string{"a": "#x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBuilder(store).AllTags(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
