package archive

import (
	"archivist/internal/models"
	"slices"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// UserSet holds account identifiers. Numeric identifiers live in a bitmap,
// anything else in a side map.
type UserSet struct {
	ids   *roaring64.Bitmap
	other map[string]struct{}
}

func NewUserSet(ids ...string) *UserSet {
	s := &UserSet{ids: roaring64.New(), other: make(map[string]struct{})}
	s.Add(ids...)
	return s
}

func (s *UserSet) Add(ids ...string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		if n, err := strconv.ParseUint(id, 10, 64); err == nil {
			s.ids.Add(n)
			continue
		}
		s.other[id] = struct{}{}
	}
}

func (s *UserSet) addRefs(refs []models.UserRef) {
	for _, r := range refs {
		s.Add(r.AccountID)
	}
}

func (s *UserSet) Has(id string) bool {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return s.ids.Contains(n)
	}
	_, ok := s.other[id]
	return ok
}

func (s *UserSet) Len() int {
	return int(s.ids.GetCardinality()) + len(s.other)
}

// IDs returns numeric identifiers in ascending order followed by the others
// sorted lexically.
func (s *UserSet) IDs() []string {
	out := make([]string, 0, s.Len())
	it := s.ids.Iterator()
	for it.HasNext() {
		out = append(out, strconv.FormatUint(it.Next(), 10))
	}
	rest := make([]string, 0, len(s.other))
	for id := range s.other {
		rest = append(rest, id)
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// Intersect returns the identifiers present in both sets.
func (s *UserSet) Intersect(o *UserSet) *UserSet {
	out := &UserSet{ids: roaring64.And(s.ids, o.ids), other: make(map[string]struct{})}
	for id := range s.other {
		if _, ok := o.other[id]; ok {
			out.other[id] = struct{}{}
		}
	}
	return out
}

func (s *UserSet) Bitmap() *roaring64.Bitmap {
	return s.ids.Clone()
}
