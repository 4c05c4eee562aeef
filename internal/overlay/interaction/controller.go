package interaction

import (
	"errors"
	"log/slog"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/models"
	"field-overlay/internal/overlay/store"
)

// ============================================================
// States
// ============================================================

type State int

const (
	Idle State = iota
	Dragging
	Resizing
)

func (s State) String() string {
	switch s {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Handle identifies which part of a field received the pointer-down.
type Handle int

const (
	Body Handle = iota
	ResizeHandle
)

var (
	ErrLocked   = errors.New("field is locked for the current signer")
	ErrBusy     = errors.New("another gesture is in progress")
	ErrNotFound = errors.New("field not found")
)

// ============================================================
// Collaborators
// ============================================================

// FieldStore is the part of the store the controller writes through.
type FieldStore interface {
	Lookup(id string) (models.Field, bool)
	Update(id string, p store.Patch) (models.Field, error)
}

// Viewport supplies the transform in effect for the current zoom.
type Viewport interface {
	Transform() geometry.Transform
}

// ============================================================
// Controller
// ============================================================

// Controller turns pointer gestures into committed moves and resizes. At most
// one gesture is active at a time. It is not safe for concurrent use; the
// owning session serialises calls.
type Controller struct {
	store    FieldStore
	viewport Viewport
	locked   func(models.Field) bool
	log      *slog.Logger

	state        State
	fieldID      string
	startPointer geometry.Point
	startPos     geometry.Point
	startSize    geometry.Size
}

// New builds a controller. locked decides which fields refuse gestures.
func New(fs FieldStore, vp Viewport, locked func(models.Field) bool, log *slog.Logger) *Controller {
	if locked == nil {
		locked = func(models.Field) bool { return false }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:    fs,
		viewport: vp,
		locked:   locked,
		log:      log.With("component", "interaction"),
	}
}

func (c *Controller) State() State { return c.state }

// Active returns the id of the field under gesture, if any.
func (c *Controller) Active() (string, bool) {
	if c.state == Idle {
		return "", false
	}
	return c.fieldID, true
}

// PointerDown starts dragging (Body) or resizing (ResizeHandle) a field.
func (c *Controller) PointerDown(fieldID string, h Handle, pointer geometry.Point) error {
	if c.state != Idle {
		return ErrBusy
	}
	f, ok := c.store.Lookup(fieldID)
	if !ok {
		return ErrNotFound
	}
	if c.locked(f) {
		return ErrLocked
	}

	c.fieldID = fieldID
	c.startPointer = pointer
	c.startPos = f.Position
	c.startSize = f.Size
	if h == ResizeHandle {
		c.state = Resizing
	} else {
		c.state = Dragging
	}
	c.log.Debug("gesture start", "field", fieldID, "state", c.state.String())
	return nil
}

// PointerMove commits the geometry implied by the pointer position. It
// reports false when no gesture is active or the field has disappeared, in
// which case the gesture ends.
func (c *Controller) PointerMove(pointer geometry.Point) (models.Field, bool) {
	if c.state == Idle {
		return models.Field{}, false
	}

	delta := c.viewport.Transform().DeltaToDocument(pointer.Sub(c.startPointer))

	var patch store.Patch
	switch c.state {
	case Dragging:
		pos := c.startPos.Add(delta)
		patch.Position = &pos
	case Resizing:
		size := geometry.ClampSize(geometry.Size{
			Width:  c.startSize.Width + delta.X,
			Height: c.startSize.Height + delta.Y,
		})
		patch.Size = &size
	}

	f, err := c.store.Update(c.fieldID, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.log.Debug("gesture target vanished", "field", c.fieldID)
			c.reset()
			return models.Field{}, false
		}
		c.log.Error("commit gesture", "field", c.fieldID, "error", err)
		return models.Field{}, false
	}
	return f, true
}

// PointerUp ends the gesture wherever the pointer is. The last committed
// geometry stays.
func (c *Controller) PointerUp() {
	if c.state != Idle {
		c.log.Debug("gesture end", "field", c.fieldID, "state", c.state.String())
	}
	c.reset()
}

// Nudge moves a field by a document-space delta in one step.
func (c *Controller) Nudge(fieldID string, delta geometry.Point) (models.Field, error) {
	f, ok := c.store.Lookup(fieldID)
	if !ok {
		return models.Field{}, ErrNotFound
	}
	if c.locked(f) {
		return models.Field{}, ErrLocked
	}
	pos := f.Position.Add(delta)
	return c.store.Update(fieldID, store.Patch{Position: &pos})
}

func (c *Controller) reset() {
	c.state = Idle
	c.fieldID = ""
}
