package controller

import (
    "fmt"

    "github.com/local/pagepicker/internal/selection"
    "github.com/local/pagepicker/internal/workflow"
)

// session is the mutable state owned by a Controller. It is only touched
// under Controller.mu.
type session struct {
    step       workflow.Step
    pages      *selection.Set
    thumbnails []string
    fileID     string
    fileName   string
    resultRef  string
    resultMsg  string
}

func newSession() session {
    return session{step: workflow.Upload, pages: selection.New(0)}
}

// Snapshot is an immutable copy of the session handed to views and stores.
type Snapshot struct {
    SessionID     string        `json:"session_id"`
    Step          workflow.Step `json:"step"`
    TotalPages    int           `json:"total_pages"`
    Selected      []int         `json:"selected"`
    Thumbnails    []string      `json:"thumbnails,omitempty"`
    FileID        string        `json:"file_id,omitempty"`
    FileName      string        `json:"file_name,omitempty"`
    ResultRef     string        `json:"result_ref,omitempty"`
    ResultMessage string        `json:"result_message,omitempty"`
    Progress      float64       `json:"progress"`
    Busy          bool          `json:"busy"`
}

// AllSelected reports whether every page is selected.
func (s Snapshot) AllSelected() bool { return len(s.Selected) == s.TotalPages }

// IsSelected reports whether page index is selected.
func (s Snapshot) IsSelected(index int) bool {
    for _, p := range s.Selected {
        if p == index { return true }
    }
    return false
}

// restoreSession rebuilds a session from a stored snapshot. A snapshot taken
// mid-request comes back as Preview since the request did not survive.
func restoreSession(snap Snapshot) (session, error) {
    if snap.TotalPages < 0 {
        return session{}, fmt.Errorf("snapshot has negative page count %d", snap.TotalPages)
    }
    s := session{
        step:       snap.Step,
        pages:      selection.New(snap.TotalPages),
        thumbnails: append([]string(nil), snap.Thumbnails...),
        fileID:     snap.FileID,
        fileName:   snap.FileName,
    }
    for _, p := range snap.Selected {
        if err := s.pages.Add(p); err != nil {
            return session{}, fmt.Errorf("snapshot selection: %w", err)
        }
    }
    switch snap.Step {
    case workflow.Upload:
        return newSession(), nil
    case workflow.Processing:
        s.step = workflow.Preview
    case workflow.Result:
        if snap.ResultRef == "" {
            s.step = workflow.Preview
        } else {
            s.resultRef = snap.ResultRef
            s.resultMsg = snap.ResultMessage
        }
    case workflow.Preview:
    default:
        return session{}, fmt.Errorf("snapshot has unknown step %d", int(snap.Step))
    }
    return s, nil
}
