package dataprocessing

import (
	"strings"

	"stocktake/pkg/contracts/domain"
)

// Recognized sheet names of a depot stock take workbook
const (
	SheetFullCylinders  = "Full Cylinders"
	SheetHalfCylinders  = "Half Cylinders"
	SheetFullDefectives = "Full Defectives"
	SheetHalfDefectives = "Half Defectives"
)

var sheetStatuses = map[string]domain.Status{
	SheetFullCylinders:  domain.StatusAvailable,
	SheetHalfCylinders:  domain.StatusNotReady,
	SheetFullDefectives: domain.StatusDefective,
	SheetHalfDefectives: domain.StatusDefective,
}

// ClassifySheet maps a sheet name to a status using exact, case-sensitive matching.
// Unrecognized names are Unknown.
func ClassifySheet(name string) domain.Status {
	if status, ok := sheetStatuses[name]; ok {
		return status
	}
	return domain.StatusUnknown
}

// Classifier maps sheet names to statuses, optionally ignoring case
type Classifier struct {
	caseInsensitive bool
	folded          map[string]domain.Status
}

// NewClassifier creates a classifier. With caseInsensitive set,
// "full cylinders" and "FULL CYLINDERS" are both Available.
func NewClassifier(caseInsensitive bool) *Classifier {
	c := &Classifier{caseInsensitive: caseInsensitive}
	if caseInsensitive {
		c.folded = make(map[string]domain.Status, len(sheetStatuses))
		for name, status := range sheetStatuses {
			c.folded[strings.ToLower(name)] = status
		}
	}
	return c
}

// Classify returns the status for a sheet name
func (c *Classifier) Classify(name string) domain.Status {
	if c == nil || !c.caseInsensitive {
		return ClassifySheet(name)
	}
	if status, ok := c.folded[strings.ToLower(name)]; ok {
		return status
	}
	return domain.StatusUnknown
}
