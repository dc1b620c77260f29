// Package controller drives the upload → preview → processing → result
// workflow: it owns the page selection, talks to the processing backend and
// pushes every state change to the subscribed views.
package controller

import (
    "context"
    "errors"
    "fmt"
    "io"
    "sync"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/pagepicker/internal/backend"
    "github.com/local/pagepicker/internal/filetype"
    "github.com/local/pagepicker/internal/metrics"
    "github.com/local/pagepicker/internal/progress"
    "github.com/local/pagepicker/internal/selection"
    "github.com/local/pagepicker/internal/workflow"
)

// Backend is the processing service as seen by the controller.
type Backend interface {
    Upload(ctx context.Context, filename string, body io.Reader) (*backend.UploadResponse, error)
    Process(ctx context.Context, req backend.ProcessRequest) (*backend.ProcessResponse, error)
    Fetch(ctx context.Context, ref string) (*backend.Artifact, error)
    ClearCache(ctx context.Context) (*backend.CacheResponse, error)
}

// View receives state changes. Calls may arrive from any goroutine; Progress
// is called from the progress ticker.
type View interface {
    Render(Snapshot)
    Progress(percent float64)
    Notify(err error)
}

// Sink receives a downloaded artifact and returns where it was stored.
type Sink interface {
    Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// File is a document picked for upload. MediaType is the declared type;
// Size and Pages may be left at -1 and 0 when unknown.
type File struct {
    Name      string
    MediaType string
    Size      int64
    Pages     int
    Body      io.Reader
}

type Options struct {
    Backend        Backend
    Progress       *progress.Simulator
    MaxUploadBytes int64
    SessionID      string
}

type Controller struct {
    backend   Backend
    sim       *progress.Simulator
    maxUpload int64
    id        string

    mu         sync.Mutex
    s          session
    epoch      uint64
    uploading  bool
    processing bool
    run        *progress.Run

    viewsMu sync.RWMutex
    views   []View
}

func New(opts Options) (*Controller, error) {
    if opts.Backend == nil { return nil, errors.New("controller: backend is required") }
    sim := opts.Progress
    if sim == nil { sim = progress.New(progress.Options{}) }
    id := opts.SessionID
    if id == "" { id = uuid.NewString() }
    return &Controller{
        backend:   opts.Backend,
        sim:       sim,
        maxUpload: opts.MaxUploadBytes,
        id:        id,
        s:         newSession(),
    }, nil
}

// SessionID identifies this controller's session in logs and stores.
func (c *Controller) SessionID() string { return c.id }

// Subscribe registers a view and renders the current state to it.
func (c *Controller) Subscribe(v View) {
    c.viewsMu.Lock()
    c.views = append(c.views, v)
    c.viewsMu.Unlock()
    v.Render(c.Snapshot())
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
    snap := Snapshot{
        SessionID:     c.id,
        Step:          c.s.step,
        TotalPages:    c.s.pages.Total(),
        Selected:      c.s.pages.Indices(),
        Thumbnails:    append([]string(nil), c.s.thumbnails...),
        FileID:        c.s.fileID,
        FileName:      c.s.fileName,
        ResultRef:     c.s.resultRef,
        ResultMessage: c.s.resultMsg,
        Busy:          c.uploading || c.processing,
    }
    switch c.s.step {
    case workflow.Processing:
        snap.Progress = c.sim.Percent()
    case workflow.Result:
        snap.Progress = 100
    }
    return snap
}

func (c *Controller) render(snap Snapshot) {
    metrics.SetSelected(len(snap.Selected))
    c.viewsMu.RLock()
    defer c.viewsMu.RUnlock()
    for _, v := range c.views {
        v.Render(snap)
    }
}

func (c *Controller) progress(p float64) {
    c.viewsMu.RLock()
    defer c.viewsMu.RUnlock()
    for _, v := range c.views {
        v.Progress(p)
    }
}

// fail logs err, pushes it to every view and returns it.
func (c *Controller) fail(err error) error {
    kind := Kind(err)
    metrics.IncRejected(kind)
    log.Warn().Err(err).Str("session", c.id).Str("kind", kind).Bool("retryable", backend.Retryable(err)).Msg("action failed")
    c.viewsMu.RLock()
    defer c.viewsMu.RUnlock()
    for _, v := range c.views {
        v.Notify(err)
    }
    return err
}

// moveToLocked changes the workflow step; callers hold c.mu.
func (c *Controller) moveToLocked(to workflow.Step) error {
    from := c.s.step
    if err := workflow.Check(from, to); err != nil { return err }
    c.s.step = to
    metrics.IncTransition(from.String(), to.String())
    log.Info().Str("session", c.id).Str("from", from.String()).Str("to", to.String()).Msg("workflow transition")
    return nil
}

// SubmitUpload sends a single PDF to the backend. On success the session is
// replaced with the uploaded document, every page selected, and the workflow
// moves to Preview. On failure the controller stays in Upload.
func (c *Controller) SubmitUpload(ctx context.Context, f File) error {
    if f.Body == nil {
        return c.fail(fmt.Errorf("%w: no file given", ErrInvalidFileType))
    }
    if !filetype.IsPDFType(f.MediaType) {
        return c.fail(fmt.Errorf("%w: %s has media type %q", ErrInvalidFileType, f.Name, f.MediaType))
    }
    if c.maxUpload > 0 && f.Size > c.maxUpload {
        return c.fail(fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, f.Name, f.Size, c.maxUpload))
    }

    c.mu.Lock()
    if c.uploading || c.processing {
        c.mu.Unlock()
        return c.fail(ErrBusy)
    }
    if c.s.step != workflow.Upload {
        step := c.s.step
        c.mu.Unlock()
        return c.fail(fmt.Errorf("%w: upload in step %s", ErrInvalidStep, step))
    }
    c.uploading = true
    epoch := c.epoch
    snap := c.snapshotLocked()
    c.mu.Unlock()
    c.render(snap)

    body := f.Body
    if c.maxUpload > 0 {
        body = &limitReader{r: f.Body, left: c.maxUpload}
    }
    log.Info().Str("session", c.id).Str("file", f.Name).Int64("size", f.Size).Msg("uploading document")
    resp, err := c.backend.Upload(ctx, f.Name, body)

    c.mu.Lock()
    if c.epoch != epoch {
        c.mu.Unlock()
        log.Info().Str("session", c.id).Msg("discarding upload response after reset")
        return ErrSuperseded
    }
    c.uploading = false
    if err == nil && resp.TotalPages < 0 {
        err = fmt.Errorf("backend reported %d pages", resp.TotalPages)
    }
    if err != nil {
        snap := c.snapshotLocked()
        c.mu.Unlock()
        c.render(snap)
        if errors.Is(err, ErrFileTooLarge) {
            return c.fail(fmt.Errorf("%s: %w", f.Name, err))
        }
        return c.fail(fmt.Errorf("%w: %w", ErrUploadFailed, err))
    }

    if len(resp.Thumbnails) != resp.TotalPages {
        log.Warn().Int("thumbnails", len(resp.Thumbnails)).Int("total_pages", resp.TotalPages).Msg("thumbnail count does not match page count")
    }
    if f.Pages > 0 && f.Pages != resp.TotalPages {
        log.Warn().Int("local_pages", f.Pages).Int("total_pages", resp.TotalPages).Msg("backend page count differs from local preflight")
    }
    name := resp.OriginalName
    if name == "" { name = f.Name }
    c.s = session{
        step:       c.s.step,
        pages:      selection.Full(resp.TotalPages),
        thumbnails: append([]string(nil), resp.Thumbnails...),
        fileID:     resp.FileID,
        fileName:   name,
    }
    if err := c.moveToLocked(workflow.Preview); err != nil {
        c.mu.Unlock()
        return c.fail(err)
    }
    snap = c.snapshotLocked()
    c.mu.Unlock()
    c.render(snap)
    return nil
}

// editSelection applies fn to the selection unless a process request is in
// flight.
func (c *Controller) editSelection(fn func(*selection.Set) error) error {
    c.mu.Lock()
    if c.s.step == workflow.Processing {
        c.mu.Unlock()
        return c.fail(ErrSelectionLocked)
    }
    if err := fn(c.s.pages); err != nil {
        c.mu.Unlock()
        if errors.Is(err, selection.ErrOutOfRange) {
            return c.fail(fmt.Errorf("%w: %w", ErrPageOutOfRange, err))
        }
        return c.fail(err)
    }
    snap := c.snapshotLocked()
    c.mu.Unlock()
    c.render(snap)
    return nil
}

// TogglePage flips the selection state of page index (0-based).
func (c *Controller) TogglePage(index int) error {
    return c.editSelection(func(s *selection.Set) error {
        _, err := s.Toggle(index)
        return err
    })
}

// TogglePages flips every listed page, or none when any index is out of
// range.
func (c *Controller) TogglePages(indices []int) error {
    return c.editSelection(func(s *selection.Set) error { return s.ToggleEach(indices) })
}

func (c *Controller) SelectAll() error {
    return c.editSelection(func(s *selection.Set) error { s.SelectAll(); return nil })
}

func (c *Controller) DeselectAll() error {
    return c.editSelection(func(s *selection.Set) error { s.DeselectAll(); return nil })
}

// ToggleSelectAll deselects everything only when every page is selected;
// any other selection, including a partial one, becomes full.
func (c *Controller) ToggleSelectAll() error {
    return c.editSelection(func(s *selection.Set) error { s.ToggleAll(); return nil })
}

// SubmitProcess sends the selected pages to the backend. The simulated
// progress runs for exactly the lifetime of the request.
func (c *Controller) SubmitProcess(ctx context.Context) error {
    c.mu.Lock()
    if c.s.pages.Empty() {
        c.mu.Unlock()
        return c.fail(ErrEmptySelection)
    }
    if c.uploading || c.processing {
        c.mu.Unlock()
        return c.fail(ErrBusy)
    }
    if c.s.step != workflow.Preview {
        step := c.s.step
        c.mu.Unlock()
        return c.fail(fmt.Errorf("%w: process in step %s", ErrInvalidStep, step))
    }
    if err := c.moveToLocked(workflow.Processing); err != nil {
        c.mu.Unlock()
        return c.fail(err)
    }
    c.processing = true
    epoch := c.epoch
    req := backend.ProcessRequest{SelectedPages: c.s.pages.Indices(), FileID: c.s.fileID}
    run, err := c.sim.Start(c.progress)
    if err != nil {
        log.Warn().Err(err).Str("session", c.id).Msg("progress indicator unavailable")
    }
    c.run = run
    snap := c.snapshotLocked()
    c.mu.Unlock()
    c.render(snap)

    log.Info().Str("session", c.id).Ints("pages", req.SelectedPages).Msg("submitting selection")
    resp, perr := c.backend.Process(ctx, req)
    if run != nil { run.Stop() }

    c.mu.Lock()
    if c.epoch != epoch {
        c.mu.Unlock()
        log.Info().Str("session", c.id).Msg("discarding process response after reset")
        return ErrSuperseded
    }
    c.run = nil
    c.processing = false
    if perr != nil {
        if err := c.moveToLocked(workflow.Preview); err != nil { log.Error().Err(err).Msg("revert to preview") }
        snap := c.snapshotLocked()
        c.mu.Unlock()
        c.render(snap)
        return c.fail(fmt.Errorf("%w: %w", ErrProcessFailed, perr))
    }
    c.s.resultRef = resp.DownloadURL
    c.s.resultMsg = resp.Message
    if err := c.moveToLocked(workflow.Result); err != nil {
        c.s.resultRef, c.s.resultMsg = "", ""
        c.mu.Unlock()
        return c.fail(err)
    }
    snap = c.snapshotLocked()
    c.mu.Unlock()
    c.progress(100)
    c.render(snap)
    return nil
}

// Reset stops any progress indicator, clears the session and returns to
// Upload. Responses to requests started before the reset are discarded.
func (c *Controller) Reset() {
    c.mu.Lock()
    from := c.s.step
    c.epoch++
    c.s = newSession()
    c.uploading, c.processing = false, false
    run := c.run
    c.run = nil
    if from != workflow.Upload {
        metrics.IncTransition(from.String(), workflow.Upload.String())
    }
    snap := c.snapshotLocked()
    c.mu.Unlock()
    if run != nil { run.Stop() }
    c.sim.Stop()
    log.Info().Str("session", c.id).Str("from", from.String()).Msg("session reset")
    c.render(snap)
}

// Restore replaces an idle Upload-step session with a stored snapshot.
func (c *Controller) Restore(snap Snapshot) error {
    s, err := restoreSession(snap)
    if err != nil { return err }
    c.mu.Lock()
    if c.uploading || c.processing || c.s.step != workflow.Upload {
        c.mu.Unlock()
        return fmt.Errorf("%w: restore requires an idle upload step", ErrInvalidStep)
    }
    c.epoch++
    c.s = s
    out := c.snapshotLocked()
    c.mu.Unlock()
    log.Info().Str("session", c.id).Str("step", out.Step.String()).Int("total_pages", out.TotalPages).Msg("session restored")
    c.render(out)
    return nil
}

// Download fetches the processed artifact into sink and returns the stored
// location. Without a result it does nothing and returns "".
func (c *Controller) Download(ctx context.Context, sink Sink) (string, error) {
    c.mu.Lock()
    ref := c.s.resultRef
    c.mu.Unlock()
    if ref == "" { return "", nil }

    art, err := c.backend.Fetch(ctx, ref)
    if err != nil { return "", c.fail(fmt.Errorf("%w: %w", ErrDownloadFailed, err)) }
    defer art.Body.Close()
    cr := &countingReader{r: art.Body}
    loc, err := sink.Put(ctx, art.Name, cr)
    metrics.AddDownloaded(cr.n)
    if err != nil { return "", c.fail(fmt.Errorf("%w: %w", ErrDownloadFailed, err)) }
    log.Info().Str("session", c.id).Str("url", art.URL).Str("location", loc).Int64("bytes", cr.n).Msg("result downloaded")
    return loc, nil
}

// ClearCache asks the backend to drop its cached files and returns its message.
func (c *Controller) ClearCache(ctx context.Context) (string, error) {
    resp, err := c.backend.ClearCache(ctx)
    if err != nil { return "", c.fail(fmt.Errorf("clear cache: %w", err)) }
    return resp.Message, nil
}

type limitReader struct {
    r    io.Reader
    left int64
}

func (l *limitReader) Read(p []byte) (int, error) {
    if l.left < 0 { return 0, ErrFileTooLarge }
    if int64(len(p)) > l.left+1 { p = p[:l.left+1] }
    n, err := l.r.Read(p)
    l.left -= int64(n)
    if l.left < 0 { return n, ErrFileTooLarge }
    return n, err
}

type countingReader struct {
    r io.Reader
    n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
    n, err := c.r.Read(p)
    c.n += int64(n)
    return n, err
}
