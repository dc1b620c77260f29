package workflow

import (
    "errors"
    "fmt"
    "strings"
)

// Step is one stage of the upload → preview → processing → result workflow.
type Step int

const (
    Upload Step = iota
    Preview
    Processing
    Result
)

// ErrTransition is returned for a move the workflow does not allow.
var ErrTransition = errors.New("invalid workflow transition")

func (s Step) String() string {
    switch s {
    case Upload:
        return "upload"
    case Preview:
        return "preview"
    case Processing:
        return "processing"
    case Result:
        return "result"
    }
    return fmt.Sprintf("step(%d)", int(s))
}

// Number is the 1-based position shown in the step indicator.
func (s Step) Number() int { return int(s) + 1 }

// Parse maps a step name back to its Step.
func Parse(name string) (Step, error) {
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "upload":
        return Upload, nil
    case "preview":
        return Preview, nil
    case "processing":
        return Processing, nil
    case "result":
        return Result, nil
    }
    return Upload, fmt.Errorf("unknown workflow step %q", name)
}

// Steps lists every step in display order.
func Steps() []Step { return []Step{Upload, Preview, Processing, Result} }

// Allowed reports whether the workflow may move from one step to another.
// Reset (any step back to Upload) is always allowed.
func Allowed(from, to Step) bool {
    if to == Upload { return true }
    switch from {
    case Upload:
        return to == Preview
    case Preview:
        return to == Processing
    case Processing:
        return to == Result || to == Preview
    }
    return false
}

// Check returns ErrTransition when Allowed is false.
func Check(from, to Step) error {
    if !Allowed(from, to) {
        return fmt.Errorf("%w: %s -> %s", ErrTransition, from, to)
    }
    return nil
}

func (s Step) MarshalText() ([]byte, error) {
    if s < Upload || s > Result { return nil, fmt.Errorf("unknown workflow step %d", int(s)) }
    return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
    v, err := Parse(string(b))
    if err != nil { return err }
    *s = v
    return nil
}
