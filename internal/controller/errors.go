package controller

import "errors"

// Error kinds surfaced to the user. Callers match them with errors.Is; the
// wrapped chain keeps the backend or validation detail.
var (
    ErrInvalidFileType = errors.New("invalid file type: a single PDF is required")
    ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
    ErrUploadFailed    = errors.New("upload failed")
    ErrEmptySelection  = errors.New("select at least one page")
    ErrProcessFailed   = errors.New("processing failed")
    ErrPageOutOfRange  = errors.New("page out of range")
    ErrBusy            = errors.New("a request is already in flight")
    ErrInvalidStep     = errors.New("action not available in the current step")
    ErrSelectionLocked = errors.New("selection is locked while processing")
    ErrDownloadFailed  = errors.New("download failed")
    ErrSuperseded      = errors.New("response discarded after reset")
)

// Kind names the error kind of err for logs and metrics.
func Kind(err error) string {
    switch {
    case err == nil:
        return ""
    case errors.Is(err, ErrInvalidFileType):
        return "invalid_file_type"
    case errors.Is(err, ErrFileTooLarge):
        return "file_too_large"
    case errors.Is(err, ErrUploadFailed):
        return "upload_failed"
    case errors.Is(err, ErrEmptySelection):
        return "empty_selection"
    case errors.Is(err, ErrProcessFailed):
        return "process_failed"
    case errors.Is(err, ErrPageOutOfRange):
        return "page_out_of_range"
    case errors.Is(err, ErrBusy):
        return "busy"
    case errors.Is(err, ErrInvalidStep):
        return "invalid_step"
    case errors.Is(err, ErrSelectionLocked):
        return "selection_locked"
    case errors.Is(err, ErrDownloadFailed):
        return "download_failed"
    case errors.Is(err, ErrSuperseded):
        return "superseded"
    }
    return "other"
}
