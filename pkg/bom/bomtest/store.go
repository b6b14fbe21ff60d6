// Package bomtest provides an in-memory remote PLM store for tests.
package bomtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	gosync "sync"

	"github.com/agentstation/bomsync/pkg/bom"
	"github.com/agentstation/bomsync/pkg/errors"
)

// Operation names recorded in Store.Calls and passed to Store.Fail.
const (
	OpSearch      = "search"
	OpGetByRef    = "get_by_ref"
	OpGetByNumber = "get_by_number"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpListLines   = "list_lines"
	OpCreateLine  = "create_line"
	OpDeleteLine  = "delete_line"
)

// Call is one recorded store invocation.
type Call struct {
	Op  string
	Key string
}

// Store implements bom.ItemStore and bom.BOMStore in memory.
type Store struct {
	mu    gosync.Mutex
	items map[string]bom.Item         // by ref
	lines map[string][]bom.RemoteLine // by parent ref
	seq   int

	// Calls records every invocation in order.
	Calls []Call

	// Fail, when set, is consulted before each operation; a non-nil
	// return is returned as the operation's error. key is the item number
	// for number lookups and creates, the line's item ref for CreateLine,
	// the line ref for DeleteLine and the ref otherwise.
	Fail func(op, key string) error

	// Hidden makes GetByNumber report not found for the given number the
	// first n times it is asked, simulating eventual consistency.
	Hidden map[string]int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		items:  make(map[string]bom.Item),
		lines:  make(map[string][]bom.RemoteLine),
		Hidden: make(map[string]int),
	}
}

// AddItem seeds an item and returns it with a generated ref when Ref is blank.
func (s *Store) AddItem(it bom.Item) bom.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.Ref == "" {
		it.Ref = s.nextRef("item")
	}
	s.items[it.Ref] = it
	return it
}

// SetLines seeds the BOM of parentRef; blank line refs are generated.
func (s *Store) SetLines(parentRef string, lines ...bom.RemoteLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bom.RemoteLine, len(lines))
	for i, l := range lines {
		if l.Ref == "" {
			l.Ref = s.nextRef("line")
		}
		out[i] = l
	}
	s.lines[parentRef] = out
}

// Lines returns the current BOM of parentRef.
func (s *Store) Lines(parentRef string) []bom.RemoteLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bom.RemoteLine(nil), s.lines[parentRef]...)
}

// Item returns the item with ref.
func (s *Store) Item(ref string) (bom.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[ref]
	return it, ok
}

// Count returns how many times op was called.
func (s *Store) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Mutations returns the number of create, update and delete calls of any kind.
func (s *Store) Mutations() int {
	return s.Count(OpCreate) + s.Count(OpUpdate) + s.Count(OpDelete) +
		s.Count(OpCreateLine) + s.Count(OpDeleteLine)
}

// Keys returns the keys recorded for op, in call order.
func (s *Store) Keys(op string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.Calls {
		if c.Op == op {
			out = append(out, c.Key)
		}
	}
	return out
}

// Search implements bom.ItemStore with a case-insensitive substring match
// on number and name.
func (s *Store) Search(_ context.Context, text string) ([]bom.Item, error) {
	if err := s.enter(OpSearch, text); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	needle := strings.ToLower(text)
	var out []bom.Item
	for _, it := range s.items {
		if strings.Contains(strings.ToLower(it.Number), needle) || strings.Contains(strings.ToLower(it.Name), needle) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// GetByRef implements bom.ItemStore.
func (s *Store) GetByRef(_ context.Context, ref string) (bom.Item, error) {
	if err := s.enter(OpGetByRef, ref); err != nil {
		return bom.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[ref]
	if !ok {
		return bom.Item{}, errors.NewNotFoundError("item", ref)
	}
	return it, nil
}

// GetByNumber implements bom.ItemStore.
func (s *Store) GetByNumber(_ context.Context, number string) (bom.Item, bool, error) {
	if err := s.enter(OpGetByNumber, number); err != nil {
		return bom.Item{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Hidden[number] > 0 {
		s.Hidden[number]--
		return bom.Item{}, false, nil
	}
	for _, it := range s.items {
		if it.Number == number {
			return it, true, nil
		}
	}
	return bom.Item{}, false, nil
}

// Create implements bom.ItemStore.
func (s *Store) Create(_ context.Context, fields bom.ItemFields) (bom.Item, error) {
	if err := s.enter(OpCreate, fields.Number); err != nil {
		return bom.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.Number == fields.Number {
			return bom.Item{}, fmt.Errorf("item %s: %w", fields.Number, errors.ErrAlreadyExists)
		}
	}
	it := bom.Item{
		Ref:         s.nextRef("item"),
		Number:      fields.Number,
		Name:        fields.Name,
		Description: fields.Description,
		Category:    fields.Category,
		Lifecycle:   fields.Lifecycle,
	}
	s.items[it.Ref] = it
	return it, nil
}

// Update implements bom.ItemStore.
func (s *Store) Update(_ context.Context, ref string, fields bom.ItemFields) (bom.Item, error) {
	if err := s.enter(OpUpdate, ref); err != nil {
		return bom.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[ref]
	if !ok {
		return bom.Item{}, errors.NewNotFoundError("item", ref)
	}
	if fields.Name != "" {
		it.Name = fields.Name
	}
	if fields.Description != "" {
		it.Description = fields.Description
	}
	if fields.Category != "" {
		it.Category = fields.Category
	}
	if fields.Lifecycle != "" {
		it.Lifecycle = fields.Lifecycle
	}
	s.items[ref] = it
	return it, nil
}

// Delete implements bom.ItemStore.
func (s *Store) Delete(_ context.Context, ref string) error {
	if err := s.enter(OpDelete, ref); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[ref]; !ok {
		return errors.NewNotFoundError("item", ref)
	}
	delete(s.items, ref)
	delete(s.lines, ref)
	return nil
}

// ListLines implements bom.BOMStore.
func (s *Store) ListLines(_ context.Context, parentRef string) ([]bom.RemoteLine, error) {
	if err := s.enter(OpListLines, parentRef); err != nil {
		return nil, err
	}
	return s.Lines(parentRef), nil
}

// CreateLine implements bom.BOMStore. The line's item fields are copied
// from the referenced item when it exists.
func (s *Store) CreateLine(_ context.Context, parentRef string, in bom.LineInput) (bom.RemoteLine, error) {
	if err := s.enter(OpCreateLine, in.ItemRef); err != nil {
		return bom.RemoteLine{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l := bom.RemoteLine{
		Ref:            s.nextRef("line"),
		SequenceNumber: in.SequenceNumber,
		Line: bom.Line{
			Level:      in.Level,
			ItemRef:    in.ItemRef,
			Quantity:   in.Quantity,
			Attributes: in.Attributes,
		},
	}
	if it, ok := s.items[in.ItemRef]; ok {
		l.ItemNumber = it.Number
		l.Name = it.Name
		l.Description = it.Description
		l.Category = it.Category
		l.Lifecycle = it.Lifecycle
	}
	s.lines[parentRef] = append(s.lines[parentRef], l)
	return l, nil
}

// DeleteLine implements bom.BOMStore.
func (s *Store) DeleteLine(_ context.Context, parentRef, lineRef string) error {
	if err := s.enter(OpDeleteLine, lineRef); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.lines[parentRef]
	for i, l := range lines {
		if l.Ref == lineRef {
			s.lines[parentRef] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("bom line", lineRef)
}

func (s *Store) enter(op, key string) error {
	s.mu.Lock()
	s.Calls = append(s.Calls, Call{Op: op, Key: key})
	fail := s.Fail
	s.mu.Unlock()
	if fail != nil {
		return fail(op, key)
	}
	return nil
}

func (s *Store) nextRef(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

var (
	_ bom.ItemStore = (*Store)(nil)
	_ bom.BOMStore  = (*Store)(nil)
)
