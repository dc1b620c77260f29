package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/local/pagepicker/internal/backend"
	"github.com/local/pagepicker/internal/controller"
	"github.com/local/pagepicker/internal/filetype"
	"github.com/local/pagepicker/internal/progress"
	"github.com/local/pagepicker/internal/workflow"
)

func TestParsePages(t *testing.T) {
	cases := map[string][]int{
		"1":         {0},
		"3,1":       {0, 2},
		"1-3":       {0, 1, 2},
		"2-3, 3, 5": {1, 2, 4},
	}
	for in, want := range cases {
		got, err := ParsePages(in, 5)
		if err != nil || !reflect.DeepEqual(got, want) {
			t.Errorf("ParsePages(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "0", "a", "4-2", "-1", ",", "6", "1-6"} {
		if _, err := ParsePages(bad, 5); err == nil {
			t.Errorf("ParsePages(%q) accepted", bad)
		}
	}
}

func TestParsePagesRejectsHugeRangeQuickly(t *testing.T) {
	start := time.Now()
	_, err := ParsePages("1-2000000000", 3)
	if !errors.Is(err, controller.ErrPageOutOfRange) {
		t.Fatalf("ParsePages err = %v, want ErrPageOutOfRange", err)
	}
	if d := time.Since(start); d > time.Second {
		t.Fatalf("ParsePages took %v", d)
	}
	if _, err := ParsePages("1", 0); !errors.Is(err, controller.ErrPageOutOfRange) {
		t.Fatalf("ParsePages without pages err = %v, want ErrPageOutOfRange", err)
	}
}

const fakePDF = "%PDF-1.4\n%%EOF\n"

func TestOpenUploadMediaType(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}
	d := &filetype.Detector{}
	cases := map[string]string{
		write("doc.pdf", fakePDF):    filetype.PDFMediaType,
		write("text.pdf", "hello\n"): "text/plain",
		write("doc.html", fakePDF):   "text/html",
		write("doc", fakePDF):        "application/octet-stream",
	}
	for path, want := range cases {
		f, closer, err := OpenUpload(d, path)
		if err != nil {
			t.Fatalf("OpenUpload(%s): %v", path, err)
		}
		closer.Close()
		if f.MediaType != want {
			t.Errorf("OpenUpload(%s).MediaType = %q, want %q", filepath.Base(path), f.MediaType, want)
		}
	}
}

type stubBackend struct {
	mu      sync.Mutex
	pages   []int
	fetched string
}

func (s *stubBackend) Upload(ctx context.Context, name string, body io.Reader) (*backend.UploadResponse, error) {
	_, _ = io.Copy(io.Discard, body)
	return &backend.UploadResponse{Success: true, TotalPages: 3, Thumbnails: []string{"a", "b", "c"}}, nil
}

func (s *stubBackend) Process(ctx context.Context, req backend.ProcessRequest) (*backend.ProcessResponse, error) {
	s.mu.Lock()
	s.pages = req.SelectedPages
	s.mu.Unlock()
	return &backend.ProcessResponse{Success: true, DownloadURL: "/download/out.pdf"}, nil
}

func (s *stubBackend) Fetch(ctx context.Context, ref string) (*backend.Artifact, error) {
	s.mu.Lock()
	s.fetched = ref
	s.mu.Unlock()
	return &backend.Artifact{URL: ref, Name: "out.pdf", Body: io.NopCloser(strings.NewReader("%PDF-out"))}, nil
}

func (s *stubBackend) ClearCache(ctx context.Context) (*backend.CacheResponse, error) {
	return &backend.CacheResponse{Success: true, Message: "Cache cleared"}, nil
}

type memSink struct{ got bytes.Buffer }

func (m *memSink) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	_, err := io.Copy(&m.got, r)
	return "mem://" + name, err
}

func TestShellSession(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(pdf, []byte(fakePDF), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	be := &stubBackend{}
	ctrl, err := controller.New(controller.Options{
		Backend:  be,
		Progress: progress.New(progress.Options{Interval: time.Millisecond}),
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	sink := &memSink{}
	var out bytes.Buffer
	sh := New(Options{
		Controller: ctrl,
		Detector:   &filetype.Detector{},
		Sinks: func(ctx context.Context, target string) (controller.Sink, error) {
			return sink, nil
		},
		Out: &out,
	})

	script := strings.Join([]string{
		"help",
		"upload " + pdf,
		"wait",
		"toggle 2",
		"process",
		"wait",
		"download",
		"clear-cache",
		"bogus",
		"quit",
		"status",
	}, "\n")
	if err := sh.Run(context.Background(), strings.NewReader(script)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(be.pages, []int{0, 2}) {
		t.Fatalf("processed pages = %v", be.pages)
	}
	if be.fetched != "/download/out.pdf" || sink.got.String() != "%PDF-out" {
		t.Fatalf("download fetched %q, sink %q", be.fetched, sink.got.String())
	}
	text := out.String()
	for _, want := range []string{"commands:", "saved mem://out.pdf", "Cache cleared", `unknown command "bogus"`} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "[4 result]") {
		t.Fatalf("command after quit was executed:\n%s", text)
	}
	if ctrl.Snapshot().Step != workflow.Result {
		t.Fatalf("step = %s", ctrl.Snapshot().Step)
	}
}

func TestShellRejectsMultipleFiles(t *testing.T) {
	ctrl, _ := controller.New(controller.Options{Backend: &stubBackend{}})
	var out bytes.Buffer
	sh := New(Options{Controller: ctrl, Out: &out})
	sh.Exec(context.Background(), "upload a.pdf b.pdf")
	sh.Wait()
	if !strings.Contains(out.String(), "got 2 files") {
		t.Fatalf("output = %q", out.String())
	}
	if ctrl.Snapshot().Step != workflow.Upload {
		t.Fatalf("left upload step")
	}
}

func TestShellToggleIsAllOrNothing(t *testing.T) {
	pdf := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(pdf, []byte(fakePDF), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctrl, err := controller.New(controller.Options{Backend: &stubBackend{}})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	var out bytes.Buffer
	sh := New(Options{Controller: ctrl, Detector: &filetype.Detector{}, Out: &out})
	ctx := context.Background()
	sh.Exec(ctx, "upload "+pdf)
	sh.Wait()

	sh.Exec(ctx, "toggle 1,9")
	if got := ctrl.Snapshot().Selected; !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Fatalf("rejected toggle changed selection: %v", got)
	}
	if !strings.Contains(out.String(), "out of range") {
		t.Fatalf("output = %q", out.String())
	}

	sh.Exec(ctx, "toggle 1 3")
	if got := ctrl.Snapshot().Selected; !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("selected = %v, want [1]", got)
	}
}
