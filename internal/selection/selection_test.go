package selection

import (
    "errors"
    "reflect"
    "testing"
)

func TestFullSelectsEveryPage(t *testing.T) {
    s := Full(4)
    if got := s.Indices(); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
        t.Fatalf("Indices = %v", got)
    }
    if !s.IsFull() {
        t.Fatalf("expected full selection")
    }
}

func TestToggleFlipsOnePage(t *testing.T) {
    s := Full(3)
    on, err := s.Toggle(1)
    if err != nil || on {
        t.Fatalf("Toggle(1) = %v, %v; want false, nil", on, err)
    }
    if s.Has(1) || s.Len() != 2 {
        t.Fatalf("page 1 still selected: %v", s.Indices())
    }
    on, err = s.Toggle(1)
    if err != nil || !on {
        t.Fatalf("second Toggle(1) = %v, %v; want true, nil", on, err)
    }
    if !reflect.DeepEqual(s.Indices(), []int{0, 1, 2}) {
        t.Fatalf("toggle twice changed selection: %v", s.Indices())
    }
}

func TestToggleEachIsAllOrNothing(t *testing.T) {
    s := Full(3)
    if err := s.ToggleEach([]int{0, 8}); !errors.Is(err, ErrOutOfRange) {
        t.Fatalf("ToggleEach err = %v, want ErrOutOfRange", err)
    }
    if got := s.Indices(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
        t.Fatalf("rejected ToggleEach changed selection: %v", got)
    }
    if err := s.ToggleEach([]int{0, 2}); err != nil {
        t.Fatalf("ToggleEach: %v", err)
    }
    if got := s.Indices(); !reflect.DeepEqual(got, []int{1}) {
        t.Fatalf("Indices = %v, want [1]", got)
    }
}

func TestToggleOutOfRange(t *testing.T) {
    s := Full(2)
    for _, idx := range []int{-1, 2, 99} {
        if _, err := s.Toggle(idx); !errors.Is(err, ErrOutOfRange) {
            t.Fatalf("Toggle(%d) err = %v, want ErrOutOfRange", idx, err)
        }
    }
    if s.Len() != 2 {
        t.Fatalf("failed toggle changed selection: %v", s.Indices())
    }
}

func TestToggleAllThreshold(t *testing.T) {
    s := Full(3)
    s.ToggleAll()
    if !s.Empty() {
        t.Fatalf("full selection should become empty, got %v", s.Indices())
    }
    s.ToggleAll()
    if !s.IsFull() {
        t.Fatalf("empty selection should become full, got %v", s.Indices())
    }

    _, _ = s.Toggle(0)
    s.ToggleAll()
    if !s.IsFull() {
        t.Fatalf("partial selection should become full, got %v", s.Indices())
    }
}

func TestSelectAndDeselectAll(t *testing.T) {
    s := New(5)
    s.SelectAll()
    if s.Len() != 5 {
        t.Fatalf("SelectAll len = %d", s.Len())
    }
    s.DeselectAll()
    if !s.Empty() || s.Total() != 5 {
        t.Fatalf("DeselectAll: len=%d total=%d", s.Len(), s.Total())
    }
}

func TestIndicesAscending(t *testing.T) {
    s := New(10)
    for _, p := range []int{7, 2, 9, 0} {
        if err := s.Add(p); err != nil {
            t.Fatalf("Add(%d): %v", p, err)
        }
    }
    if got := s.Indices(); !reflect.DeepEqual(got, []int{0, 2, 7, 9}) {
        t.Fatalf("Indices = %v", got)
    }
}

func TestCloneIsIndependent(t *testing.T) {
    s := Full(3)
    c := s.Clone()
    _, _ = c.Toggle(0)
    if !s.Has(0) {
        t.Fatalf("clone shares state with original")
    }
}

func TestZeroPages(t *testing.T) {
    s := Full(0)
    if !s.Empty() || !s.IsFull() {
        t.Fatalf("zero-page set: empty=%v full=%v", s.Empty(), s.IsFull())
    }
    if _, err := s.Toggle(0); !errors.Is(err, ErrOutOfRange) {
        t.Fatalf("Toggle on zero pages err = %v", err)
    }
}
