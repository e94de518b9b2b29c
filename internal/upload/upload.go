// Package upload hosts vehicle photos and, on request, reads their text.
package upload

import "context"

type OCRStatus string

const (
	OCRComplete   OCRStatus = "complete"
	OCRIncomplete OCRStatus = "incomplete"
)

// Photo is one uploaded image.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

type Options struct {
	OCR bool
}

// Result describes a hosted photo. OCRLines is only meaningful when
// OCRStatus is OCRComplete; OCRStatus is empty when OCR was not requested.
type Result struct {
	URL       string
	OCRLines  []string
	OCRStatus OCRStatus
}

// Lines returns the OCR lines when OCR completed, nil otherwise.
func (r *Result) Lines() []string {
	if r.OCRStatus != OCRComplete {
		return nil
	}
	if r.OCRLines == nil {
		return []string{}
	}
	return r.OCRLines
}

type Uploader interface {
	Upload(ctx context.Context, photo Photo, opts Options) (*Result, error)
}
