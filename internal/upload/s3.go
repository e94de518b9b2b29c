package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rektypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type textDetector interface {
	DetectText(ctx context.Context, in *rekognition.DetectTextInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectTextOutput, error)
}

// S3Uploader stores photos in an S3 compatible bucket and reads plate text
// with Rekognition.
type S3Uploader struct {
	objects       objectPutter
	ocr           textDetector
	bucket        string
	publicBaseURL string
	region        string
	log           zerolog.Logger
}

func NewS3Uploader(objects *s3.Client, ocr *rekognition.Client, bucket, region, publicBaseURL string, log zerolog.Logger) *S3Uploader {
	u := &S3Uploader{
		objects:       objects,
		bucket:        bucket,
		region:        region,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
	if ocr != nil {
		u.ocr = ocr
	}
	return u
}

func (u *S3Uploader) Upload(ctx context.Context, photo Photo, opts Options) (*Result, error) {
	if len(photo.Data) == 0 {
		return nil, errors.New("photo is empty")
	}

	key := storageKey(photo.Name)
	contentType := photo.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(photo.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	result := &Result{URL: u.objectURL(key)}
	if !opts.OCR {
		return result, nil
	}

	lines, err := u.detectLines(ctx, photo.Data)
	if err != nil {
		u.log.Warn().Err(err).Str("key", key).Msg("text detection did not complete")
		result.OCRStatus = OCRIncomplete
		return result, nil
	}
	result.OCRLines = lines
	result.OCRStatus = OCRComplete
	return result, nil
}

func (u *S3Uploader) detectLines(ctx context.Context, data []byte) ([]string, error) {
	if u.ocr == nil {
		return nil, errors.New("text detection is not configured")
	}
	out, err := u.ocr.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &rektypes.Image{Bytes: data},
	})
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(out.TextDetections))
	for _, d := range out.TextDetections {
		if d.Type != rektypes.TextTypesLine || d.DetectedText == nil {
			continue
		}
		lines = append(lines, *d.DetectedText)
	}
	return lines, nil
}

func (u *S3Uploader) objectURL(key string) string {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}

func storageKey(name string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("cars/%d/%02d/%02d/%s%s", d.Year(), d.Month(), d.Day(), uuid.New(), strings.ToLower(path.Ext(name)))
}
