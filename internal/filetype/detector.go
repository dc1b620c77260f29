package filetype

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// PDFMediaType is the only media type the upload step accepts.
const PDFMediaType = "application/pdf"

// ErrNotPDF is returned when a file is not a PDF by content or by name.
var ErrNotPDF = errors.New("file is not a PDF")

// FileTypeInfo describes a local file picked for upload
type FileTypeInfo struct {
	Path        string
	Name        string
	Size        int64
	MIMEType    string // detected from magic bytes
	Declared    string // derived from the file extension
	Pages       int    // 0 when the page count could not be determined
	Description string
}

// IsPDF reports whether both the content and the name say PDF.
func (i *FileTypeInfo) IsPDF() bool {
	return i.MIMEType == PDFMediaType && i.Declared == PDFMediaType
}

// Detector inspects files before they are handed to the upload step
type Detector struct {
	// CountPages enables the pdfcpu page count preflight
	CountPages bool
}

// New creates a new file type detector
func New() *Detector {
	return &Detector{CountPages: true}
}

// DeclaredType maps a file name to the media type its extension declares.
func DeclaredType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ext == ".pdf" {
		return PDFMediaType
	}
	t := mime.TypeByExtension(ext)
	if i := strings.Index(t, ";"); i >= 0 {
		t = t[:i]
	}
	return t
}

// IsPDFType reports whether a media type string names PDF, ignoring parameters.
func IsPDFType(mediaType string) bool {
	t, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return false
	}
	return t == PDFMediaType
}

// Detect detects the actual file type using magic bytes, not filename
func (d *Detector) Detect(filePath string) (*FileTypeInfo, error) {
	st, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", filePath, ErrNotPDF)
	}
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	info := &FileTypeInfo{
		Path:     filePath,
		Name:     filepath.Base(filePath),
		Size:     st.Size(),
		MIMEType: mtype.String(),
		Declared: DeclaredType(filePath),
	}
	// mimetype may append parameters for some types
	if i := strings.Index(info.MIMEType, ";"); i >= 0 {
		info.MIMEType = info.MIMEType[:i]
	}

	log.Debug().Str("mime", info.MIMEType).Str("declared", info.Declared).Str("file", filePath).Msg("detected file type")

	d.classify(info)
	if info.MIMEType == PDFMediaType && d.CountPages {
		if n, err := PageCountFile(filePath); err != nil {
			log.Warn().Err(err).Str("file", filePath).Msg("pdf page count preflight failed")
		} else {
			info.Pages = n
		}
	}
	return info, nil
}

// classify fills the human readable description
func (d *Detector) classify(info *FileTypeInfo) {
	switch {
	case info.IsPDF():
		info.Description = "PDF document"
	case info.MIMEType == PDFMediaType:
		info.Description = fmt.Sprintf("PDF content with a non-PDF name (%s)", info.Name)
	case info.Declared == PDFMediaType:
		info.Description = fmt.Sprintf("named like a PDF but contains %s", info.MIMEType)
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}

// RequirePDF runs Detect and returns ErrNotPDF unless the file is a PDF by
// content and by name.
func (d *Detector) RequirePDF(filePath string) (*FileTypeInfo, error) {
	info, err := d.Detect(filePath)
	if err != nil {
		return nil, err
	}
	if !info.IsPDF() {
		return info, fmt.Errorf("%s: %s: %w", info.Name, info.Description, ErrNotPDF)
	}
	return info, nil
}
