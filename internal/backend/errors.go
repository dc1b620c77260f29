package backend

import "fmt"

// HTTPError is a non-2xx response from the processing backend.
type HTTPError struct {
    Endpoint   string
    StatusCode int
    Body       string
}

func (e *HTTPError) Error() string {
    return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Endpoint, e.Body)
}

// RemoteError is a well-formed response whose success flag is false.
type RemoteError struct {
    Endpoint string
    Message  string
}

func (e *RemoteError) Error() string {
    if e.Message == "" { return fmt.Sprintf("%s reported failure", e.Endpoint) }
    return fmt.Sprintf("%s reported failure: %s", e.Endpoint, e.Message)
}
