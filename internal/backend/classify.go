package backend

import (
    "context"
    "errors"
    "net"
    "strings"
    "syscall"
)

// Retryable reports whether err looks temporary: a timeout, a dropped
// connection, a 5xx or a 429. Nothing is retried automatically; callers use
// this to tell the user that trying again may help.
func Retryable(err error) bool {
    if err == nil { return false }
    if errors.Is(err, context.Canceled) { return false }
    if errors.Is(err, context.DeadlineExceeded) { return true }

    var httpErr *HTTPError
    if errors.As(err, &httpErr) {
        return httpErr.StatusCode >= 500 || httpErr.StatusCode == 429
    }
    var remote *RemoteError
    if errors.As(err, &remote) {
        return false
    }

    if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
        return true
    }
    var netErr net.Error
    if errors.As(err, &netErr) && netErr.Timeout() {
        return true
    }
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "connection refused") ||
        strings.Contains(msg, "connection reset") ||
        strings.Contains(msg, "unexpected eof")
}
