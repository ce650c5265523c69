// Package index keeps entities keyed by identifier together with
// calendar-month views derived from each entity's date.
package index

import (
	"archivist/internal/models"
	"errors"
	"iter"
	"maps"
	"math/big"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

var ErrInvalidRange = errors.New("index: since is after until")

// Entity is anything indexable by identifier and date.
type Entity interface {
	EntityID() string
	Date() time.Time
}

// Options controls memoization of derived views. Results are identical with
// or without caching.
type Options struct {
	Cache bool
}

// MonthEntry is yielded by MonthIter.
type MonthEntry[T Entity] struct {
	Year  int
	Month time.Month
	Item  T
}

// Months maps year → month → identifier → entity.
type Months[T Entity] map[int]map[time.Month]map[string]T

type views[T Entity] struct {
	all      []T
	allOK    bool
	months   Months[T]
	monthsOK bool
	ids      *roaring64.Bitmap
	idsOK    bool
	sorted   []T
	sortedOK bool
}

// Index is safe for concurrent use.
type Index[T Entity] struct {
	mu    sync.RWMutex
	opts  Options
	items map[string]T
	views views[T]
}

func New[T Entity](opts Options) *Index[T] {
	return &Index[T]{opts: opts, items: make(map[string]T)}
}

// Add upserts items by identifier, last write wins, and drops every
// memoized view.
func (ix *Index[T]) Add(items ...T) {
	for _, it := range items {
		it.Date()
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, it := range items {
		ix.items[it.EntityID()] = it
	}
	ix.views = views[T]{}
}

func (ix *Index[T]) Single(id string) (T, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	it, ok := ix.items[id]
	return it, ok
}

func (ix *Index[T]) Has(id string) bool {
	_, ok := ix.Single(id)
	return ok
}

func (ix *Index[T]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.items)
}

// cached returns the view stored in slot, building it under the appropriate
// lock. Without caching the view is rebuilt on every call.
func cached[T Entity, V any](ix *Index[T], slot *V, ok *bool, build func() V) V {
	ix.mu.RLock()
	if *ok {
		v := *slot
		ix.mu.RUnlock()
		return v
	}
	if !ix.opts.Cache {
		v := build()
		ix.mu.RUnlock()
		return v
	}
	ix.mu.RUnlock()

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !*ok {
		*slot = build()
		*ok = true
	}
	return *slot
}

// All returns every entity in unspecified order.
func (ix *Index[T]) All() []T {
	all := cached(ix, &ix.views.all, &ix.views.allOK, func() []T {
		return slices.Collect(maps.Values(ix.items))
	})
	return slices.Clone(all)
}

// ByMonth returns the year → month → identifier view. The result is shared
// and must not be modified.
func (ix *Index[T]) ByMonth() Months[T] {
	return cached(ix, &ix.views.months, &ix.views.monthsOK, func() Months[T] {
		m := make(Months[T])
		for id, it := range ix.items {
			d := it.Date()
			byMonth, ok := m[d.Year()]
			if !ok {
				byMonth = make(map[time.Month]map[string]T)
				m[d.Year()] = byMonth
			}
			bucket, ok := byMonth[d.Month()]
			if !ok {
				bucket = make(map[string]T)
				byMonth[d.Month()] = bucket
			}
			bucket[id] = it
		}
		return m
	})
}

// IDIndex returns a copy of the identifier → entity map.
func (ix *Index[T]) IDIndex() map[string]T {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return maps.Clone(ix.items)
}

// IDSet returns the numeric identifiers as a bitmap. Identifiers that do not
// fit in 64 bits are left out.
func (ix *Index[T]) IDSet() *roaring64.Bitmap {
	set := cached(ix, &ix.views.ids, &ix.views.idsOK, func() *roaring64.Bitmap {
		bm := roaring64.New()
		for id := range ix.items {
			if n, err := strconv.ParseUint(id, 10, 64); err == nil {
				bm.Add(n)
			}
		}
		return bm
	})
	return set.Clone()
}

// Month returns the entities dated in the given calendar month.
func (ix *Index[T]) Month(month time.Month, year int) []T {
	bucket := ix.ByMonth()[year][month]
	return slices.Collect(maps.Values(bucket))
}

// Between returns entities dated from since, inclusive, through the calendar
// day of until. Only the months spanning both dates are scanned; within them
// an entity passes when its year is lower, or its month is lower, or its day
// is not greater than until's.
func (ix *Index[T]) Between(since, until time.Time) ([]T, error) {
	if since.After(until) {
		return nil, ErrInvalidRange
	}
	since, until = since.UTC(), until.UTC()
	uy, um, ud := until.Date()
	months := ix.ByMonth()

	var out []T
	for _, ym := range spanMonths(since, until) {
		for _, it := range months[ym.year][ym.month] {
			d := it.Date()
			if d.Before(since) {
				continue
			}
			y, m, day := d.Date()
			if y < uy || m < um || day <= ud {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// spanMonths lists the calendar months from since's through until's, both
// included.
func spanMonths(since, until time.Time) []yearMonth {
	cur := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(until.Year(), until.Month(), 1, 0, 0, 0, 0, time.UTC)
	var out []yearMonth
	for !cur.After(last) {
		out = append(out, yearMonth{cur.Year(), cur.Month()})
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// FromThatDay returns entities sharing ref's month and day across all years.
func (ix *Index[T]) FromThatDay(ref time.Time) []T {
	ref = ref.UTC()
	var out []T
	for _, byMonth := range ix.ByMonth() {
		for _, it := range byMonth[ref.Month()] {
			if it.Date().Day() == ref.Day() {
				out = append(out, it)
			}
		}
	}
	return out
}

// Iter yields every entity in unspecified order.
func (ix *Index[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, it := range ix.All() {
			if !yield(it) {
				return
			}
		}
	}
}

// MonthIter yields entities grouped by month, ordered over years and months.
// Order within a month is unspecified.
func (ix *Index[T]) MonthIter(desc bool) iter.Seq[MonthEntry[T]] {
	return func(yield func(MonthEntry[T]) bool) {
		months := ix.ByMonth()
		years := slices.Sorted(maps.Keys(months))
		if desc {
			slices.Reverse(years)
		}
		for _, y := range years {
			ms := slices.Sorted(maps.Keys(months[y]))
			if desc {
				slices.Reverse(ms)
			}
			for _, m := range ms {
				for _, it := range months[y][m] {
					if !yield(MonthEntry[T]{Year: y, Month: m, Item: it}) {
						return
					}
				}
			}
		}
	}
}

// Sorted yields entities ordered by numeric identifier.
func (ix *Index[T]) Sorted(desc bool) iter.Seq[T] {
	return func(yield func(T) bool) {
		asc := cached(ix, &ix.views.sorted, &ix.views.sortedOK, func() []T {
			return sortByID(ix.items)
		})
		if desc {
			for i := len(asc) - 1; i >= 0; i-- {
				if !yield(asc[i]) {
					return
				}
			}
			return
		}
		for _, it := range asc {
			if !yield(it) {
				return
			}
		}
	}
}

type keyed[T Entity] struct {
	n    *big.Int
	id   string
	item T
}

func sortByID[T Entity](items map[string]T) []T {
	ks := make([]keyed[T], 0, len(items))
	for id, it := range items {
		n, _ := models.ParseID(id)
		ks = append(ks, keyed[T]{n: n, id: id, item: it})
	}
	sort.Slice(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		switch {
		case a.n != nil && b.n != nil:
			return a.n.Cmp(b.n) < 0
		case a.n != nil || b.n != nil:
			return b.n != nil
		}
		return a.id < b.id
	})
	out := make([]T, len(ks))
	for i, k := range ks {
		out[i] = k.item
	}
	return out
}
