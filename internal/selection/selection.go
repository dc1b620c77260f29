package selection

import (
    "errors"
    "fmt"
    "sort"
)

// ErrOutOfRange is returned when a page index falls outside [0, total).
var ErrOutOfRange = errors.New("page index out of range")

// Set tracks the selected page indices of a document with a fixed page count.
// The zero value is an empty set over a zero-page document.
type Set struct {
    total int
    pages map[int]struct{}
}

// New returns an empty selection over total pages.
func New(total int) *Set {
    if total < 0 { total = 0 }
    return &Set{total: total, pages: make(map[int]struct{}, total)}
}

// Full returns a selection over total pages with every page selected.
func Full(total int) *Set {
    s := New(total)
    s.SelectAll()
    return s
}

// Total is the number of pages the selection ranges over.
func (s *Set) Total() int { return s.total }

// Len is the number of selected pages.
func (s *Set) Len() int { return len(s.pages) }

func (s *Set) Empty() bool { return len(s.pages) == 0 }

// IsFull reports whether every page is selected. A zero-page set is full.
func (s *Set) IsFull() bool { return len(s.pages) == s.total }

func (s *Set) Has(index int) bool {
    _, ok := s.pages[index]
    return ok
}

func (s *Set) check(index int) error {
    if index < 0 || index >= s.total {
        return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, index, s.total)
    }
    return nil
}

// Toggle flips the selection state of one page and returns the new state.
func (s *Set) Toggle(index int) (bool, error) {
    if err := s.check(index); err != nil { return false, err }
    if s.pages == nil { s.pages = map[int]struct{}{} }
    if _, ok := s.pages[index]; ok {
        delete(s.pages, index)
        return false, nil
    }
    s.pages[index] = struct{}{}
    return true, nil
}

// ToggleEach flips every listed page, or none of them when any index is out
// of range.
func (s *Set) ToggleEach(indices []int) error {
    for _, i := range indices {
        if err := s.check(i); err != nil { return err }
    }
    for _, i := range indices {
        _, _ = s.Toggle(i)
    }
    return nil
}

// Add selects a page; selecting an already selected page is a no-op.
func (s *Set) Add(index int) error {
    if err := s.check(index); err != nil { return err }
    if s.pages == nil { s.pages = map[int]struct{}{} }
    s.pages[index] = struct{}{}
    return nil
}

func (s *Set) SelectAll() {
    s.pages = make(map[int]struct{}, s.total)
    for i := 0; i < s.total; i++ {
        s.pages[i] = struct{}{}
    }
}

func (s *Set) DeselectAll() { s.pages = make(map[int]struct{}) }

// ToggleAll deselects everything when the whole range is selected and selects
// everything otherwise. A partial selection always becomes full.
func (s *Set) ToggleAll() {
    if s.IsFull() {
        s.DeselectAll()
        return
    }
    s.SelectAll()
}

// Indices returns the selected pages in ascending order.
func (s *Set) Indices() []int {
    out := make([]int, 0, len(s.pages))
    for p := range s.pages {
        out = append(out, p)
    }
    sort.Ints(out)
    return out
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
    c := New(s.total)
    for p := range s.pages {
        c.pages[p] = struct{}{}
    }
    return c
}
