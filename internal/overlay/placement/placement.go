// Package placement decides whether a new field may be created at a point.
//
// The check runs once, when the field is created, against the locked fields
// visible at that moment. Fields that become locked later are not
// re-examined.
package placement

import (
	"errors"
	"fmt"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/models"
)

// ConflictMessage is shown to the user when a placement is refused.
const ConflictMessage = "Cannot place fields over signature areas"

var ErrConflict = errors.New(ConflictMessage)

// CanPlace reports whether point on page is clear of every locked field on
// that page. Bounds are inclusive.
func CanPlace(point geometry.Point, page int, locked []models.Field) bool {
	return blocker(point, page, locked) == nil
}

// Check is CanPlace returning an error that names the blocking field.
func Check(point geometry.Point, page int, locked []models.Field) error {
	if b := blocker(point, page, locked); b != nil {
		return fmt.Errorf("field %s on page %d: %w", b.ID, page, ErrConflict)
	}
	return nil
}

// Obstacles filters fields down to those locked for current.
func Obstacles(fields []models.Field, current *models.Signer) []models.Field {
	var out []models.Field
	for _, f := range fields {
		if models.LockedFor(f, current) {
			out = append(out, f)
		}
	}
	return out
}

func blocker(point geometry.Point, page int, locked []models.Field) *models.Field {
	for i := range locked {
		f := &locked[i]
		if f.Page != page {
			continue
		}
		if f.Bounds().Contains(point) {
			return f
		}
	}
	return nil
}
