package metrics

import (
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRecord(t *testing.T) {
    Init()
    Init()

    before := testutil.ToFloat64(rejected.WithLabelValues("busy"))
    IncRejected("busy")
    if got := testutil.ToFloat64(rejected.WithLabelValues("busy")); got != before+1 {
        t.Fatalf("rejected busy = %v, want %v", got, before+1)
    }

    SetSelected(7)
    if got := testutil.ToFloat64(selectedPages); got != 7 {
        t.Fatalf("selected pages = %v", got)
    }

    ObserveRequest("upload", "ok", 20*time.Millisecond)
    IncTransition("upload", "preview")
    AddDownloaded(1024)

    rec := httptest.NewRecorder()
    Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
    body := rec.Body.String()
    for _, want := range []string{
        `pagepicker_backend_requests_total{endpoint="upload",result="ok"}`,
        `pagepicker_workflow_transitions_total{from="upload",to="preview"}`,
        "pagepicker_downloaded_bytes_total",
    } {
        if !strings.Contains(body, want) {
            t.Fatalf("metrics output missing %s", want)
        }
    }
}
