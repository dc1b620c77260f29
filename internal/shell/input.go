package shell

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/local/pagepicker/internal/controller"
	"github.com/local/pagepicker/internal/filetype"
)

// OpenUpload inspects path and opens it for SubmitUpload. The declared media
// type is the extension's type, or application/octet-stream for an unknown
// extension. Content that is not a PDF reports its detected type instead so
// the controller rejects it.
func OpenUpload(d *filetype.Detector, path string) (controller.File, io.Closer, error) {
	info, err := d.Detect(path)
	if err != nil {
		return controller.File{}, nil, err
	}
	mediaType := info.Declared
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	if info.MIMEType != filetype.PDFMediaType {
		mediaType = info.MIMEType
	}
	f, err := os.Open(path)
	if err != nil {
		return controller.File{}, nil, err
	}
	return controller.File{
		Name:      info.Name,
		MediaType: mediaType,
		Size:      info.Size,
		Pages:     info.Pages,
		Body:      f,
	}, f, nil
}

// ParsePages turns "1,3-5" style page numbers (1-based) into sorted, unique
// 0-based indices. Pages past total are rejected before any range is expanded.
func ParsePages(spec string, total int) ([]int, error) {
	if total <= 0 {
		return nil, fmt.Errorf("%w: no pages loaded", controller.ErrPageOutOfRange)
	}
	seen := map[int]bool{}
	var out []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}
		b, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}
		if a < 1 || b < a {
			return nil, fmt.Errorf("bad page range %q", part)
		}
		if b > total {
			return nil, fmt.Errorf("%w: page %d of %d", controller.ErrPageOutOfRange, b, total)
		}
		for p := a; p <= b; p++ {
			if !seen[p-1] {
				seen[p-1] = true
				out = append(out, p-1)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pages in %q", spec)
	}
	slices.Sort(out)
	return out, nil
}
