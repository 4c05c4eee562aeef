package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/interaction"
	"field-overlay/internal/overlay/models"
	"field-overlay/internal/overlay/placement"
	"field-overlay/internal/overlay/renderer"
	"field-overlay/internal/overlay/signers"
	"field-overlay/internal/overlay/store"
)

// ============================================================
// Modes & Steps
// ============================================================

type Mode string

const (
	ModeSign Mode = "sign"
	ModeEdit Mode = "edit"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSign, ModeEdit:
		return Mode(s), nil
	case "":
		return ModeSign, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// tools lists the kinds a mode offers.
func (m Mode) tools() []models.Kind {
	if m == ModeEdit {
		return []models.Kind{models.KindText, models.KindCheckbox, models.KindImage, models.KindDate}
	}
	return []models.Kind{models.KindSignature, models.KindDate, models.KindText}
}

type Step string

const (
	StepSigners Step = "signers"
	StepDesign  Step = "design"
	StepSent    Step = "sent"
)

// EstimatedPages is assumed when the document does not report a page count.
const EstimatedPages = 5

var (
	ErrNoTool         = errors.New("no tool selected")
	ErrToolNotAllowed = errors.New("tool not available in this mode")
	ErrNoSigner       = errors.New("no current signer")
	ErrRosterInvalid  = errors.New("every signer needs at least one signature field")
	ErrInvalidMode    = errors.New("invalid mode")
	ErrInvalidStep    = errors.New("invalid workflow step")
	ErrLocked         = interaction.ErrLocked
)

// ============================================================
// Options
// ============================================================

type Options struct {
	Ladder    []renderer.Stage
	Clock     renderer.Clock
	NoticeTTL time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

func (o Options) withDefaults() Options {
	if len(o.Ladder) == 0 {
		o.Ladder = renderer.DefaultLadder()
	}
	if o.NoticeTTL <= 0 {
		o.NoticeTTL = DefaultNoticeTTL
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ============================================================
// Viewport & Display
// ============================================================

// viewport is read by the interaction controller while the session lock is
// held, so it has no lock of its own.
type viewport struct {
	origin geometry.Point
	scale  float64
}

func (v *viewport) Transform() geometry.Transform {
	return geometry.NewTransform(v.origin, v.scale)
}

// DisplayRequest is the last page a display backend was asked to show.
type DisplayRequest struct {
	Stage string  `json:"stage"`
	Page  int     `json:"page"`
	Scale float64 `json:"scale"`
}

type display struct {
	mu   sync.Mutex
	last DisplayRequest
}

func (d *display) backend(stage string) renderer.Backend {
	return renderer.BackendFunc(func(_ renderer.Document, page int, scale float64) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.last = DisplayRequest{Stage: stage, Page: page, Scale: scale}
	})
}

func (d *display) current() DisplayRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// ============================================================
// Session
// ============================================================

// Session holds everything one document editing session needs. All methods
// are safe for concurrent use.
type Session struct {
	mu   sync.Mutex
	id   string
	doc  renderer.Document
	mode Mode
	step Step

	fields  *store.Store
	roster  *signers.Roster
	current *models.Signer
	tool    *models.Kind

	page      int
	pages     int
	estimated bool
	view      *viewport

	ctrl      *interaction.Controller
	sel       *renderer.Selector
	notices   *noticeBoard
	display   *display
	attention string

	log *slog.Logger
}

// NewSession builds a session for doc and starts the renderer ladder.
func NewSession(id string, doc renderer.Document, mode Mode, opts Options) (*Session, error) {
	if mode != ModeSign && mode != ModeEdit {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	opts = opts.withDefaults()

	s := &Session{
		id:      id,
		doc:     doc,
		mode:    mode,
		step:    StepSigners,
		fields:  store.New(),
		roster:  signers.NewRoster(),
		page:    1,
		pages:   doc.Pages,
		view:    &viewport{scale: 1.0},
		notices: newNoticeBoard(opts.NoticeTTL, opts.Now),
		display: &display{},
		log:     opts.Logger.With("component", "session", "session", id),
	}
	if mode == ModeEdit {
		s.step = StepDesign
	}
	if s.pages <= 0 {
		s.pages = EstimatedPages
		s.estimated = true
	}

	s.ctrl = interaction.New(s.fields, s.view, s.isLocked, opts.Logger)

	selOpts := []renderer.Option{renderer.WithLogger(opts.Logger)}
	if opts.Clock != nil {
		selOpts = append(selOpts, renderer.WithClock(opts.Clock))
	}
	for _, st := range opts.Ladder {
		selOpts = append(selOpts, renderer.WithBackend(st.Name, s.display.backend(st.Name)))
	}
	sel, err := renderer.NewSelector(opts.Ladder, selOpts...)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	sel.OnTransition(func(t renderer.Transition) {
		if t.Terminal {
			s.notices.raise(NoticeInfo, FallbackMessage)
		}
	})
	s.sel = sel

	doc.Pages = s.pages
	s.doc = doc
	sel.Start(doc, s.page, s.view.scale)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Document() renderer.Document { return s.doc }

// Close stops the renderer ladder.
func (s *Session) Close() {
	s.sel.Stop()
}

// actor is the signer whose fields are editable: nobody in edit mode.
func (s *Session) actor() *models.Signer {
	if s.mode == ModeEdit {
		return nil
	}
	return s.current
}

func (s *Session) isLocked(f models.Field) bool {
	return models.LockedFor(f, s.actor())
}

func (s *Session) present(f models.Field) models.FieldView {
	return models.ViewFor(f, s.actor())
}

// ============================================================
// Mode & Workflow
// ============================================================

func (s *Session) SetMode(m Mode) error {
	if m != ModeSign && m != ModeEdit {
		return fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == m {
		return nil
	}
	s.ctrl.PointerUp()
	s.mode = m
	s.tool = nil
	s.log.Info("mode changed", "mode", m)
	return nil
}

// SetStep moves between the signers and design steps. The sent step is only
// reachable through Send.
func (s *Session) SetStep(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch step {
	case StepSigners:
	case StepDesign:
		if s.roster.Len() == 0 && s.mode == ModeSign {
			return ErrNoSigner
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStep, step)
	}
	s.step = step
	return nil
}

// Validation reports which signers still lack a signature field.
func (s *Session) Validation() signers.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return signers.Validate(s.roster.List(), s.fields.All())
}

func (s *Session) IsWorkflowReady() bool {
	return s.Validation().AllValid
}

// Send is the terminal action. With an invalid roster it returns the report
// wrapped in ErrRosterInvalid, moves back to the signers step and points
// attention at the first offending signer.
func (s *Session) Send() (signers.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := signers.Validate(s.roster.List(), s.fields.All())
	if s.step == StepSent {
		return rep, nil
	}
	if !rep.AllValid {
		s.step = StepSigners
		s.attention = rep.FirstInvalid
		s.log.Info("send blocked", "invalid", len(rep.Invalid), "first", rep.FirstInvalid)
		if len(rep.Invalid) == 0 {
			return rep, fmt.Errorf("%w: roster is empty", ErrRosterInvalid)
		}
		return rep, fmt.Errorf("%w: %d signer(s) without a field", ErrRosterInvalid, len(rep.Invalid))
	}

	s.ctrl.PointerUp()
	s.step = StepSent
	s.attention = ""
	s.log.Info("sent", "signers", s.roster.Len(), "fields", s.fields.Len())
	return rep, nil
}

// ============================================================
// Tools & Placement
// ============================================================

// SelectTool arms kind for the next click. A nil kind disarms.
func (s *Session) SelectTool(kind *models.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == nil {
		s.tool = nil
		return nil
	}
	for _, k := range s.mode.tools() {
		if k == *kind {
			armed := k
			s.tool = &armed
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s mode", ErrToolNotAllowed, *kind, s.mode)
}

// Click places a field of the armed kind at a screen point on the current
// page. A click over a locked field raises a notice and creates nothing.
func (s *Session) Click(screen geometry.Point) (models.FieldView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool == nil {
		return models.FieldView{}, ErrNoTool
	}
	actor := s.actor()
	if s.mode == ModeSign && actor == nil {
		return models.FieldView{}, ErrNoSigner
	}

	at := s.view.Transform().ToDocumentSpace(screen)
	obstacles := placement.Obstacles(s.fields.Get(s.page), actor)
	if err := placement.Check(at, s.page, obstacles); err != nil {
		s.notices.raise(NoticeError, placement.ConflictMessage)
		s.log.Debug("placement refused", "page", s.page, "x", at.X, "y", at.Y, "error", err)
		return models.FieldView{}, err
	}

	f := models.NewField(*s.tool, s.page, at)
	if actor != nil {
		f.SignerID = actor.ID
	}
	if _, err := s.fields.Create(f); err != nil {
		return models.FieldView{}, fmt.Errorf("place field: %w", err)
	}
	s.tool = nil
	if s.attention == f.SignerID {
		s.attention = ""
	}
	s.log.Debug("field placed", "field", f.ID, "kind", f.Kind, "page", f.Page)
	return s.present(f), nil
}

// ============================================================
// Field Operations
// ============================================================

// UpdateField applies p to an editable field. It reports false when the
// field no longer exists, which is not an error.
func (s *Session) UpdateField(id string, p store.Patch) (models.FieldView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields.Lookup(id)
	if !ok {
		s.log.Debug("update of unknown field ignored", "field", id)
		return models.FieldView{}, false, nil
	}
	if s.isLocked(f) {
		return models.FieldView{}, true, fmt.Errorf("update %s: %w", id, ErrLocked)
	}
	f, err := s.fields.Update(id, p)
	if errors.Is(err, store.ErrNotFound) {
		return models.FieldView{}, false, nil
	}
	if err != nil {
		return models.FieldView{}, true, err
	}
	return s.present(f), true, nil
}

func (s *Session) MoveField(id string, pos geometry.Point) (models.FieldView, bool, error) {
	return s.UpdateField(id, store.Patch{Position: &pos})
}

func (s *Session) ResizeField(id string, size geometry.Size) (models.FieldView, bool, error) {
	return s.UpdateField(id, store.Patch{Size: &size})
}

// NudgeField moves an editable field by a document-space delta.
func (s *Session) NudgeField(id string, delta geometry.Point) (models.FieldView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.ctrl.Nudge(id, delta)
	switch {
	case errors.Is(err, interaction.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return models.FieldView{}, false, nil
	case err != nil:
		return models.FieldView{}, true, fmt.Errorf("nudge %s: %w", id, err)
	}
	return s.present(f), true, nil
}

// DeleteField removes an editable field. Deleting an unknown field is a
// no-op.
func (s *Session) DeleteField(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.fields.Lookup(id)
	if !ok {
		s.log.Debug("delete of unknown field ignored", "field", id)
		return nil
	}
	if s.isLocked(f) {
		return fmt.Errorf("delete %s: %w", id, ErrLocked)
	}
	if err := s.fields.Delete(id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

// CopyResult reports the clones made by CopyToAllPages and the pages where
// placement was refused.
type CopyResult struct {
	Created []models.FieldView `json:"created"`
	Skipped []int              `json:"skipped"`
}

// CopyToAllPages clones an editable field onto every other page of the
// document at the same position. Each clone gets a fresh id and passes the
// same placement check as a click; blocked pages are skipped and raise the
// conflict notice. It reports false when the field no longer exists.
func (s *Session) CopyToAllPages(id string) (CopyResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.fields.Lookup(id)
	if !ok {
		s.log.Debug("copy of unknown field ignored", "field", id)
		return CopyResult{}, false, nil
	}
	if s.isLocked(src) {
		return CopyResult{}, true, fmt.Errorf("copy %s: %w", id, ErrLocked)
	}

	res := CopyResult{Created: []models.FieldView{}, Skipped: []int{}}
	actor := s.actor()
	for page := 1; page <= s.pages; page++ {
		if page == src.Page {
			continue
		}
		obstacles := placement.Obstacles(s.fields.Get(page), actor)
		if err := placement.Check(src.Position, page, obstacles); err != nil {
			res.Skipped = append(res.Skipped, page)
			continue
		}
		clone := src
		clone.ID = models.NewFieldID()
		clone.Page = page
		if _, err := s.fields.Create(clone); err != nil {
			return res, true, fmt.Errorf("copy %s to page %d: %w", id, page, err)
		}
		res.Created = append(res.Created, s.present(clone))
	}
	if len(res.Skipped) > 0 {
		s.notices.raise(NoticeError, placement.ConflictMessage)
	}
	s.log.Debug("field copied to all pages", "field", id, "created", len(res.Created), "skipped", len(res.Skipped))
	return res, true, nil
}

// ClearSignerFields deletes every signature field owned by signerID. Only
// the acting signer may clear; other signers' fields are locked.
func (s *Session) ClearSignerFields(signerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roster.Get(signerID); !ok {
		return 0, fmt.Errorf("clear %s: %w", signerID, signers.ErrUnknownSigner)
	}
	if actor := s.actor(); actor == nil || actor.ID != signerID {
		return 0, fmt.Errorf("clear %s: %w", signerID, ErrLocked)
	}
	return s.clearSignerFields(signerID), nil
}

func (s *Session) clearSignerFields(signerID string) int {
	n := s.fields.DeleteWhere(func(f models.Field) bool {
		return f.IsSignatureField() && f.SignerID == signerID
	})
	s.log.Debug("signer fields cleared", "signer", signerID, "count", n)
	return n
}

// FieldsOnPage returns the fields of page as seen by the current actor.
func (s *Session) FieldsOnPage(page int) []models.FieldView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewsOn(page)
}

func (s *Session) viewsOn(page int) []models.FieldView {
	fields := s.fields.Get(page)
	out := make([]models.FieldView, len(fields))
	for i, f := range fields {
		out[i] = s.present(f)
	}
	return out
}

// ============================================================
// Signers
// ============================================================

// AddSigner appends a signer. The first signer becomes current.
func (s *Session) AddSigner(name, email string) (models.Signer, error) {
	signer, err := models.NewSigner(name, email)
	if err != nil {
		return models.Signer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.roster.Add(signer)
	if s.current == nil {
		cur := signer
		s.current = &cur
	}
	s.log.Info("signer added", "signer", signer.ID)
	return signer, nil
}

// RemoveSigner drops a signer together with all of their signature fields.
// If they were current, the first remaining signer takes over.
func (s *Session) RemoveSigner(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.roster.Remove(id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	s.clearSignerFields(id)

	if s.current != nil && s.current.ID == id {
		s.ctrl.PointerUp()
		s.current = next
	}
	if s.attention == id {
		s.attention = ""
	}
	s.log.Info("signer removed", "signer", id)
	return nil
}

func (s *Session) SelectSigner(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signer, ok := s.roster.Get(id)
	if !ok {
		return fmt.Errorf("select %s: %w", id, signers.ErrUnknownSigner)
	}
	s.ctrl.PointerUp()
	s.current = &signer
	return nil
}

func (s *Session) CurrentSigner() *models.Signer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cur := *s.current
	return &cur
}

func (s *Session) SearchSigners(term string) []models.Signer {
	return s.roster.Search(term)
}

// ============================================================
// Viewport
// ============================================================

func (s *Session) ZoomIn() float64 {
	return s.zoom(geometry.ZoomIn)
}

func (s *Session) ZoomOut() float64 {
	return s.zoom(geometry.ZoomOut)
}

func (s *Session) zoom(step func(float64) float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := step(s.view.scale)
	if next != s.view.scale {
		s.view.scale = next
		s.sel.SetPage(s.page, next)
	}
	return next
}

// SetOrigin records where the page container sits on screen.
func (s *Session) SetOrigin(p geometry.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.origin = p
}

// SetPage switches the visible page, clamped into the document. The renderer
// keeps its backend and is only asked for the new page.
func (s *Session) SetPage(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	page = max(1, min(page, s.pages))
	if page != s.page {
		s.ctrl.PointerUp()
		s.page = page
	}
	s.sel.SetPage(page, s.view.scale)
	return page
}

// Transform returns the screen/document mapping in effect.
func (s *Session) Transform() geometry.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Transform()
}

// ============================================================
// Pointer Gestures
// ============================================================

func (s *Session) PointerDown(fieldID string, h interaction.Handle, p geometry.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerDown(fieldID, h, p)
}

func (s *Session) PointerMove(p geometry.Point) (models.FieldView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.ctrl.PointerMove(p)
	if !ok {
		return models.FieldView{}, false
	}
	return s.present(f), true
}

func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.PointerUp()
}

// ============================================================
// Renderer Signals
// ============================================================

func (s *Session) RendererLoaded(stage string) bool {
	return s.sel.Loaded(stage)
}

func (s *Session) RendererFailed(stage, reason string) bool {
	var cause error
	if reason != "" {
		cause = errors.New(reason)
	}
	return s.sel.Failed(stage, cause)
}

func (s *Session) RendererStatus() renderer.Status {
	return s.sel.Status()
}

func (s *Session) Notice() (Notice, bool) {
	return s.notices.active()
}

// ============================================================
// Snapshot
// ============================================================

// Snapshot is the full presentable state of a session.
type Snapshot struct {
	ID             string             `json:"id"`
	DocumentID     string             `json:"documentId"`
	DocumentURL    string             `json:"documentUrl"`
	Mode           Mode               `json:"mode"`
	Step           Step               `json:"step"`
	Page           int                `json:"page"`
	Pages          int                `json:"pages"`
	PagesEstimated bool               `json:"pagesEstimated"`
	Scale          float64            `json:"scale"`
	Origin         geometry.Point     `json:"origin"`
	Tool           *models.Kind       `json:"tool"`
	CurrentSigner  *models.Signer     `json:"currentSigner"`
	Signers        []models.Signer    `json:"signers"`
	Fields         []models.FieldView `json:"fields"`
	Gesture        string             `json:"gesture"`
	ActiveField    string             `json:"activeField,omitempty"`
	Renderer       renderer.Status    `json:"renderer"`
	Display        DisplayRequest     `json:"display"`
	Notice         *Notice            `json:"notice,omitempty"`
	Validation     signers.Report     `json:"validation"`
	Attention      string             `json:"attention,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:             s.id,
		DocumentID:     s.doc.ID,
		DocumentURL:    s.doc.URL,
		Mode:           s.mode,
		Step:           s.step,
		Page:           s.page,
		Pages:          s.pages,
		PagesEstimated: s.estimated,
		Scale:          s.view.scale,
		Origin:         s.view.origin,
		Signers:        s.roster.List(),
		Fields:         s.viewsOn(s.page),
		Gesture:        s.ctrl.State().String(),
		Renderer:       s.sel.Status(),
		Display:        s.display.current(),
		Validation:     signers.Validate(s.roster.List(), s.fields.All()),
		Attention:      s.attention,
	}
	if s.tool != nil {
		k := *s.tool
		snap.Tool = &k
	}
	if s.current != nil {
		cur := *s.current
		snap.CurrentSigner = &cur
	}
	if id, ok := s.ctrl.Active(); ok {
		snap.ActiveField = id
	}
	if n, ok := s.notices.active(); ok {
		snap.Notice = &n
	}
	return snap
}
