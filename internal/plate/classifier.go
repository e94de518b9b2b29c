package plate

import (
	"net/http"
	"strings"

	"plate-intake-service/internal/domain/vehicle"
)

// MinLicenseLength is the effective length a license number needs to count.
const MinLicenseLength = 9

// NoLicenseMessage accompanies every result that did not yield a license.
const NoLicenseMessage = "No license found"

// Classifier applies the confidence rules to an interpretation and packages
// the per-image result. It performs no I/O.
type Classifier struct {
	interpreter *Interpreter
}

func NewClassifier(interpreter *Interpreter) *Classifier {
	return &Classifier{interpreter: interpreter}
}

// Classify builds the result for one uploaded photo. A nil lines slice means
// the photo was not read for text and is reported as not found.
func (c *Classifier) Classify(lines []string, imageURL string) vehicle.ExtractionResult {
	if lines == nil {
		return notFound(imageURL)
	}

	number := c.interpreter.LicenseNumber(lines)
	jurisdiction := c.interpreter.Jurisdiction(lines)

	if EffectiveLength(number) < MinLicenseLength || !c.interpreter.Jurisdictions().Contains(jurisdiction) {
		return notFound(imageURL)
	}

	return vehicle.ExtractionResult{
		ImageURL:      imageURL,
		LicenseNumber: number,
		Jurisdiction:  jurisdiction,
		Found:         true,
		Status:        http.StatusOK,
	}
}

// EffectiveLength puts plates printed without a hyphen on the same length
// basis as hyphenated ones.
func EffectiveLength(number string) int {
	n := len([]rune(number))
	if !strings.Contains(number, "-") {
		n++
	}
	return n
}

func notFound(imageURL string) vehicle.ExtractionResult {
	return vehicle.ExtractionResult{
		ImageURL: imageURL,
		Found:    false,
		Status:   http.StatusCreated,
		Message:  NoLicenseMessage,
	}
}
