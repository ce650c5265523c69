package container

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// backend lists and reads entries by their full archive path.
type backend interface {
	list(ctx context.Context) ([]Entry, error)
	read(ctx context.Context, name string) ([]byte, error)
	close() error
	name() string
	nested(data []byte, name string) Reader
}

// listing is shared by every view derived from the same archive.
type listing struct {
	backend backend
	events  *emitter

	once    sync.Once
	ready   atomic.Bool
	err     error
	entries []Entry
	files   map[string]Entry
	dirs    map[string]Entry
}

func newListing(b backend) *listing {
	return &listing{backend: b, events: newEmitter()}
}

func (l *listing) load(ctx context.Context) {
	entries, err := l.backend.list(ctx)
	if err != nil {
		l.err = err
		l.events.emit(Event{Kind: EventError, Name: l.backend.name(), Err: err})
		return
	}

	l.files = make(map[string]Entry, len(entries))
	l.dirs = make(map[string]Entry)
	for _, e := range entries {
		if e.Dir {
			full := strings.TrimSuffix(e.Path, "/")
			e.Path, e.Name = full, full
			l.dirs[full] = e
			continue
		}
		l.files[e.Path] = e
		for dir := path.Dir(e.Path); dir != "." && dir != "/"; dir = path.Dir(dir) {
			if _, ok := l.dirs[dir]; ok {
				break
			}
			l.dirs[dir] = Entry{Name: dir, Path: dir, Dir: true}
		}
	}
	for _, e := range entries {
		if !e.Dir {
			l.entries = append(l.entries, e)
		}
	}
	dirs := make([]Entry, 0, len(l.dirs))
	for _, d := range l.dirs {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path < dirs[j].Path })
	l.entries = append(l.entries, dirs...)

	l.ready.Store(true)
	l.events.emit(Event{Kind: EventReady, Name: l.backend.name(), Count: len(l.files)})
}

// view is a Reader scoped to root, which is empty or ends with '/'.
type view struct {
	l    *listing
	root string
}

func newView(b backend) *view {
	return &view{l: newListing(b)}
}

func (v *view) Ready(ctx context.Context) error {
	v.l.once.Do(func() { v.l.load(ctx) })
	return v.l.err
}

func (v *view) Name() string {
	return v.l.backend.name()
}

func (v *view) Root() string {
	return strings.TrimSuffix(v.root, "/")
}

func (v *view) full(name string) string {
	return v.root + strings.Trim(name, "/")
}

func (v *view) relative(e Entry) Entry {
	e.Name = strings.TrimPrefix(e.Path, v.root)
	return e
}

func (v *view) inScope(p string) bool {
	return v.root == "" || strings.HasPrefix(p, v.root)
}

func (v *view) Has(name string) bool {
	if !v.l.ready.Load() {
		return false
	}
	p := v.full(name)
	if _, ok := v.l.files[p]; ok {
		return true
	}
	_, ok := v.l.dirs[p]
	return ok
}

func (v *view) Entries() []Entry {
	if !v.l.ready.Load() {
		return nil
	}
	out := make([]Entry, 0)
	for _, e := range v.l.entries {
		if v.inScope(e.Path) && e.Path+"/" != v.root {
			out = append(out, v.relative(e))
		}
	}
	return out
}

func (v *view) Search(pattern string) ([]Entry, error) {
	return v.search(pattern, false)
}

func (v *view) SearchDir(pattern string) ([]Entry, error) {
	return v.search(pattern, true)
}

// search matches pattern against names relative to the view root. The
// pattern must match the whole relative name.
func (v *view) search(pattern string, dirs bool) ([]Entry, error) {
	if !v.l.ready.Load() {
		return nil, ErrNotReady
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("container: invalid pattern %q: %w", pattern, err)
	}
	var out []Entry
	for _, e := range v.l.entries {
		if e.Dir != dirs || !v.inScope(e.Path) {
			continue
		}
		rel := v.relative(e)
		if rel.Name != "" && re.MatchString(rel.Name) {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (v *view) Dir(name string) Reader {
	root := v.full(name)
	if root != "" {
		root += "/"
	}
	return &view{l: v.l, root: root}
}

func (v *view) Raw(ctx context.Context, name string) ([]byte, error) {
	if !v.l.ready.Load() {
		return nil, ErrNotReady
	}
	p := v.full(name)
	if _, ok := v.l.files[p]; !ok {
		v.l.events.emit(Event{Kind: EventNotFound, Name: p})
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	data, err := v.l.backend.read(ctx, p)
	if err != nil {
		v.l.events.emit(Event{Kind: EventError, Name: p, Err: err})
		return nil, err
	}
	v.l.events.emit(Event{Kind: EventRead, Name: p})
	return data, nil
}

func (v *view) Text(ctx context.Context, name string) (string, error) {
	data, err := v.Raw(ctx, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (v *view) Decode(ctx context.Context, name string, dst any) error {
	data, err := v.Raw(ctx, name)
	if err != nil {
		return err
	}
	if err := decodePayload(v.full(name), data, dst); err != nil {
		v.l.events.emit(Event{Kind: EventError, Name: v.full(name), Err: err})
		return err
	}
	return nil
}

func (v *view) FromFile(ctx context.Context, name string) (Reader, error) {
	data, err := v.Raw(ctx, name)
	if err != nil {
		return nil, err
	}
	r := v.l.backend.nested(data, v.full(name))
	if err := r.Ready(ctx); err != nil {
		return nil, fmt.Errorf("container: nested archive %s: %w", v.full(name), err)
	}
	return r, nil
}

func (v *view) Subscribe(fn func(Event)) func() {
	return v.l.events.subscribe(fn)
}

func (v *view) Close() error {
	return v.l.backend.close()
}
