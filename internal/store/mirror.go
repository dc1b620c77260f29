package store

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pagepicker/internal/controller"
    "github.com/local/pagepicker/internal/workflow"
)

// Saver persists session snapshots.
type Saver interface {
    Save(ctx context.Context, snap controller.Snapshot) error
    Delete(ctx context.Context, id string) error
}

// Mirror is a controller.View that writes every rendered snapshot to a Saver.
// A session back at an empty upload step has nothing to resume and is deleted.
type Mirror struct {
    saver   Saver
    timeout time.Duration
}

func NewMirror(saver Saver, timeout time.Duration) *Mirror {
    if timeout <= 0 { timeout = 2 * time.Second }
    return &Mirror{saver: saver, timeout: timeout}
}

func (m *Mirror) Render(snap controller.Snapshot) {
    ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
    defer cancel()
    if snap.Step == workflow.Upload && snap.TotalPages == 0 {
        if err := m.saver.Delete(ctx, snap.SessionID); err != nil {
            log.Warn().Err(err).Str("session", snap.SessionID).Msg("session snapshot not deleted")
        }
        return
    }
    if err := m.saver.Save(ctx, snap); err != nil {
        log.Warn().Err(err).Str("session", snap.SessionID).Msg("session snapshot not saved")
    }
}

func (m *Mirror) Progress(float64) {}
func (m *Mirror) Notify(error)     {}
