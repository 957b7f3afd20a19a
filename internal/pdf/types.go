// Package pdf runs whole documents through the transcoding pipeline:
// glyph decoding, grouping, translation, stream synthesis and page
// writing, plus the reflow alternative that renders blocks onto new pages.
package pdf

import (
	"time"

	"pdf-layout-translator/internal/errors"
)

// BlockType 文本块类型
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
	BlockOther BlockType = "other"
)

// BlockInfo 重排路径使用的文本块. Coordinates are PDF user space.
type BlockInfo struct {
	No       int       `json:"no"`
	Page     int       `json:"page"`
	Type     BlockType `json:"type"`
	X0       float64   `json:"x0"`
	Y0       float64   `json:"y0"`
	X1       float64   `json:"x1"`
	Y1       float64   `json:"y1"`
	Text     string    `json:"text"`
	FontSize float64   `json:"font_size"`
	Image    string    `json:"image,omitempty"` // XObject resource name of image blocks
}

// Width returns X1-X0.
func (b *BlockInfo) Width() float64 { return b.X1 - b.X0 }

// Height returns Y1-Y0.
func (b *BlockInfo) Height() float64 { return b.Y1 - b.Y0 }

// ProgressCallback is called after each page.
// completed: pages processed so far, failed or not
// total: page count of the document
type ProgressCallback func(completed, total int)

// Report 一次文档处理的结果
type Report struct {
	InputPath  string                `json:"input_path"`
	OutputPath string                `json:"output_path"`
	Pages      int                   `json:"pages"`
	Translated int                   `json:"translated"`
	Failures   []*errors.ErrorRecord `json:"failures,omitempty"`
	Duration   time.Duration         `json:"duration"`
}

// Failed returns the zero-based indexes of pages kept untranslated.
func (r *Report) Failed() []int {
	out := make([]int, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Page)
	}
	return out
}

// PDFErrorCode 错误代码枚举
type PDFErrorCode string

const (
	ErrPDFNotFound          PDFErrorCode = "PDF_NOT_FOUND"
	ErrPDFInvalid           PDFErrorCode = "PDF_INVALID"
	ErrDecodeFailed         PDFErrorCode = "DECODE_FAILED"
	ErrClassifyFailed       PDFErrorCode = "CLASSIFY_FAILED"
	ErrTranslateFailed      PDFErrorCode = "TRANSLATE_FAILED"
	ErrPlaceholderIntegrity PDFErrorCode = "PLACEHOLDER_INTEGRITY"
	ErrSynthesizeFailed     PDFErrorCode = "SYNTHESIZE_FAILED"
	ErrWriteFailed          PDFErrorCode = "WRITE_FAILED"
	ErrCancelled            PDFErrorCode = "CANCELLED"
)

// PDFError PDF 处理错误. Page is zero-based; -1 when the error concerns
// the whole document.
type PDFError struct {
	Code    PDFErrorCode `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Page    int          `json:"page"`
	Cause   error        `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a document-level PDFError.
func NewPDFError(code PDFErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    -1,
		Cause:   cause,
	}
}

// NewPDFErrorWithPage creates a new PDFError with page information
func NewPDFErrorWithPage(code PDFErrorCode, message string, page int, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Page:    page,
		Cause:   cause,
	}
}
