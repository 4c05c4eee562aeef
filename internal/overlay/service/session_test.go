package service

import (
	"sync"
	"testing"
	"time"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/interaction"
	"field-overlay/internal/overlay/models"
	"field-overlay/internal/overlay/placement"
	"field-overlay/internal/overlay/renderer"
	"field-overlay/internal/overlay/signers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires renderer timeouts only on Advance.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at   time.Duration
	fn   func()
	done bool
	mu   *sync.Mutex
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) renderer.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, fn: f, mu: &c.mu}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if !t.done && t.at <= target && (next == nil || t.at < next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

type harness struct {
	s     *Session
	clock *manualClock
	now   time.Time
}

func (h *harness) tick(d time.Duration) { h.now = h.now.Add(d) }

func newHarness(t *testing.T, mode Mode, pages int) *harness {
	t.Helper()
	h := &harness{clock: &manualClock{}, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, err := NewSession("sess-1", renderer.Document{ID: "doc-1", URL: "/docs/doc-1.pdf", Pages: pages}, mode, Options{
		Clock: h.clock,
		Now:   func() time.Time { return h.now },
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	h.s = s
	return h
}

func kind(k models.Kind) *models.Kind { return &k }

func place(t *testing.T, s *Session, k models.Kind, at geometry.Point) models.FieldView {
	t.Helper()
	require.NoError(t, s.SelectTool(kind(k)))
	f, err := s.Click(at)
	require.NoError(t, err)
	return f
}

// ============================================================
// Placement
// ============================================================

func TestClickRefusedOverOtherSignersField(t *testing.T) {
	h := newHarness(t, ModeSign, 3)
	s := h.s

	a, err := s.AddSigner("Alice", "alice@example.com")
	require.NoError(t, err)
	b, err := s.AddSigner("Bob", "bob@example.com")
	require.NoError(t, err)

	require.NoError(t, s.SelectSigner(b.ID))
	owned := place(t, s, models.KindSignature, geometry.Point{X: 100, Y: 100})
	assert.Equal(t, b.ID, owned.SignerID)
	assert.Equal(t, geometry.Size{Width: 200, Height: 80}, owned.Size)
	assert.False(t, owned.Locked)

	require.NoError(t, s.SelectSigner(a.ID))
	require.NoError(t, s.SelectTool(kind(models.KindText)))

	_, err = s.Click(geometry.Point{X: 150, Y: 120})
	assert.ErrorIs(t, err, placement.ErrConflict)
	assert.Len(t, s.FieldsOnPage(1), 1)

	n, ok := s.Notice()
	require.True(t, ok)
	assert.Equal(t, placement.ConflictMessage, n.Message)
	assert.Equal(t, NoticeError, n.Kind)

	// tool stays armed after a refusal
	s.SetPage(2)
	f, err := s.Click(geometry.Point{X: 150, Y: 120})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, "Edit this text", f.Content)
	assert.Nil(t, s.Snapshot().Tool, "tool disarms after placement")
}

func TestOwnFieldsAreNotObstacles(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	_, err := s.AddSigner("Alice", "alice@example.com")
	require.NoError(t, err)

	place(t, s, models.KindSignature, geometry.Point{X: 100, Y: 100})
	place(t, s, models.KindDate, geometry.Point{X: 120, Y: 110})
	assert.Len(t, s.FieldsOnPage(1), 2)
}

func TestNoticeExpires(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")
	require.NoError(t, s.SelectSigner(b.ID))
	place(t, s, models.KindSignature, geometry.Point{X: 0, Y: 0})
	require.NoError(t, s.SelectSigner(a.ID))
	require.NoError(t, s.SelectTool(kind(models.KindSignature)))

	_, err := s.Click(geometry.Point{X: 10, Y: 10})
	require.Error(t, err)

	h.tick(2999 * time.Millisecond)
	_, ok := s.Notice()
	assert.True(t, ok)

	h.tick(time.Millisecond)
	_, ok = s.Notice()
	assert.False(t, ok)
	assert.Nil(t, s.Snapshot().Notice)
}

func TestEditModeLocksEverySignatureField(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	_, err := s.AddSigner("Alice", "alice@example.com")
	require.NoError(t, err)
	sig := place(t, s, models.KindSignature, geometry.Point{X: 100, Y: 100})

	require.NoError(t, s.SetMode(ModeEdit))

	views := s.FieldsOnPage(1)
	require.Len(t, views, 1)
	assert.True(t, views[0].Locked)

	require.NoError(t, s.SelectTool(kind(models.KindCheckbox)))
	_, err = s.Click(geometry.Point{X: 300, Y: 180})
	assert.ErrorIs(t, err, placement.ErrConflict)

	box, err := s.Click(geometry.Point{X: 301, Y: 180})
	require.NoError(t, err)
	assert.Equal(t, geometry.Size{Width: 40, Height: 40}, box.Size)
	assert.Empty(t, box.SignerID)

	_, _, err = s.MoveField(sig.ID, geometry.Point{X: 0, Y: 0})
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, s.DeleteField(sig.ID), ErrLocked)
}

func TestToolsDependOnMode(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	assert.ErrorIs(t, h.s.SelectTool(kind(models.KindSignature)), ErrToolNotAllowed)
	assert.NoError(t, h.s.SelectTool(kind(models.KindImage)))
	assert.NoError(t, h.s.SelectTool(nil))

	_, err := h.s.Click(geometry.Point{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrNoTool)

	h2 := newHarness(t, ModeSign, 1)
	assert.ErrorIs(t, h2.s.SelectTool(kind(models.KindCheckbox)), ErrToolNotAllowed)
	require.NoError(t, h2.s.SelectTool(kind(models.KindSignature)))
	_, err = h2.s.Click(geometry.Point{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrNoSigner)
}

// ============================================================
// Signers & Workflow
// ============================================================

func TestRemoveSignerCascades(t *testing.T) {
	h := newHarness(t, ModeSign, 2)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")

	place(t, s, models.KindSignature, geometry.Point{X: 10, Y: 10})
	require.NoError(t, s.SelectSigner(b.ID))
	place(t, s, models.KindSignature, geometry.Point{X: 300, Y: 300})
	s.SetPage(2)
	place(t, s, models.KindText, geometry.Point{X: 300, Y: 300})

	require.NoError(t, s.RemoveSigner(b.ID))

	cur := s.CurrentSigner()
	require.NotNil(t, cur)
	assert.Equal(t, a.ID, cur.ID)
	assert.Empty(t, s.FieldsOnPage(2))
	require.Len(t, s.FieldsOnPage(1), 1)
	assert.Equal(t, a.ID, s.FieldsOnPage(1)[0].SignerID)

	require.NoError(t, s.RemoveSigner(a.ID))
	assert.Nil(t, s.CurrentSigner())
	assert.Empty(t, s.FieldsOnPage(1))

	assert.ErrorIs(t, s.RemoveSigner(a.ID), signers.ErrUnknownSigner)
}

func TestRemovingOtherSignerKeepsCurrent(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")

	require.NoError(t, s.RemoveSigner(b.ID))
	assert.Equal(t, a.ID, s.CurrentSigner().ID)
}

func TestClearSignerFieldsOnlyForActingSigner(t *testing.T) {
	h := newHarness(t, ModeSign, 2)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")

	place(t, s, models.KindSignature, geometry.Point{X: 10, Y: 10})
	s.SetPage(2)
	place(t, s, models.KindDate, geometry.Point{X: 10, Y: 10})
	require.NoError(t, s.SelectSigner(b.ID))
	s.SetPage(1)
	place(t, s, models.KindSignature, geometry.Point{X: 400, Y: 400})
	require.NoError(t, s.SelectSigner(a.ID))

	n, err := s.ClearSignerFields(b.ID)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Zero(t, n)
	assert.Len(t, s.FieldsOnPage(1), 2, "locked fields survive")

	_, err = s.ClearSignerFields("signer-gone")
	assert.ErrorIs(t, err, signers.ErrUnknownSigner)

	n, err = s.ClearSignerFields(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, s.FieldsOnPage(1), 1)
	assert.Equal(t, b.ID, s.FieldsOnPage(1)[0].SignerID)
	assert.Empty(t, s.FieldsOnPage(2))
}

func TestClearSignerFieldsLockedInEditMode(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	place(t, s, models.KindSignature, geometry.Point{X: 10, Y: 10})

	require.NoError(t, s.SetMode(ModeEdit))
	_, err := s.ClearSignerFields(a.ID)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Len(t, s.FieldsOnPage(1), 1)
}

// ============================================================
// Copy to all pages
// ============================================================

func TestCopyToAllPages(t *testing.T) {
	h := newHarness(t, ModeSign, 3)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	src := place(t, s, models.KindSignature, geometry.Point{X: 100, Y: 100})

	res, ok, err := s.CopyToAllPages(src.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, res.Created, 2)
	assert.Empty(t, res.Skipped)

	seen := map[string]bool{src.ID: true}
	for i, page := range []int{2, 3} {
		c := res.Created[i]
		assert.Equal(t, page, c.Page)
		assert.Equal(t, src.Position, c.Position)
		assert.Equal(t, src.Size, c.Size)
		assert.Equal(t, a.ID, c.SignerID)
		assert.False(t, seen[c.ID], "fresh id per clone")
		seen[c.ID] = true
		assert.Len(t, s.FieldsOnPage(page), 1)
	}
	assert.Len(t, s.FieldsOnPage(1), 1)
}

func TestCopyToAllPagesSkipsBlockedPages(t *testing.T) {
	h := newHarness(t, ModeSign, 3)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")

	require.NoError(t, s.SelectSigner(b.ID))
	s.SetPage(2)
	blocker := place(t, s, models.KindSignature, geometry.Point{X: 50, Y: 50})

	require.NoError(t, s.SelectSigner(a.ID))
	s.SetPage(1)
	src := place(t, s, models.KindSignature, geometry.Point{X: 100, Y: 100})

	res, ok, err := s.CopyToAllPages(src.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{2}, res.Skipped)
	require.Len(t, res.Created, 1)
	assert.Equal(t, 3, res.Created[0].Page)

	n, shown := s.Notice()
	require.True(t, shown)
	assert.Equal(t, placement.ConflictMessage, n.Message)

	_, _, err = s.CopyToAllPages(blocker.ID)
	assert.ErrorIs(t, err, ErrLocked, "another signer's field cannot be copied")

	_, ok, err = s.CopyToAllPages("field-gone")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestSendBlockedUntilEverySignerHasField(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	_, _ = s.AddSigner("Alice", "alice@example.com")
	b, _ := s.AddSigner("Bob", "bob@example.com")
	require.NoError(t, s.SetStep(StepDesign))

	place(t, s, models.KindSignature, geometry.Point{X: 10, Y: 10})
	assert.False(t, s.IsWorkflowReady())

	rep, err := s.Send()
	assert.ErrorIs(t, err, ErrRosterInvalid)
	assert.Equal(t, []string{b.ID}, rep.Invalid)
	assert.Equal(t, b.ID, rep.FirstInvalid)

	snap := s.Snapshot()
	assert.Equal(t, StepSigners, snap.Step)
	assert.Equal(t, b.ID, snap.Attention)

	require.NoError(t, s.SelectSigner(b.ID))
	place(t, s, models.KindSignature, geometry.Point{X: 300, Y: 300})
	assert.Empty(t, s.Snapshot().Attention)
	assert.True(t, s.IsWorkflowReady())

	rep, err = s.Send()
	require.NoError(t, err)
	assert.True(t, rep.AllValid)
	assert.Equal(t, StepSent, s.Snapshot().Step)
}

func TestSendWithEmptyRoster(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	_, err := h.s.Send()
	assert.ErrorIs(t, err, ErrRosterInvalid)
	assert.ErrorIs(t, h.s.SetStep(StepDesign), ErrNoSigner)
	assert.ErrorIs(t, h.s.SetStep(StepSent), ErrInvalidStep)
}

// ============================================================
// Viewport & Gestures
// ============================================================

func TestZoomAndClickUseDocumentSpace(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	s := h.s

	for i := 0; i < 20; i++ {
		s.ZoomIn()
	}
	assert.Equal(t, geometry.MaxScale, s.Snapshot().Scale)
	s.SetOrigin(geometry.Point{X: 40, Y: 100})

	f := place(t, s, models.KindText, geometry.Point{X: 240, Y: 300})
	assert.InDelta(t, 100, f.Position.X, 1e-9)
	assert.InDelta(t, 100, f.Position.Y, 1e-9)

	for i := 0; i < 20; i++ {
		s.ZoomOut()
	}
	assert.Equal(t, geometry.MinScale, s.Snapshot().Scale)
}

func TestDragUnderZoom(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	s := h.s
	s.ZoomIn()
	s.ZoomOut()
	for i := 0; i < 10; i++ {
		s.ZoomIn()
	}
	require.Equal(t, 2.0, s.Snapshot().Scale)

	f := place(t, s, models.KindText, geometry.Point{X: 200, Y: 200})

	require.NoError(t, s.PointerDown(f.ID, interaction.Body, geometry.Point{X: 500, Y: 500}))
	assert.Equal(t, "dragging", s.Snapshot().Gesture)

	moved, ok := s.PointerMove(geometry.Point{X: 520, Y: 480})
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 110, Y: 90}, moved.Position)

	s.PointerUp()
	assert.Equal(t, "idle", s.Snapshot().Gesture)

	require.NoError(t, s.PointerDown(f.ID, interaction.ResizeHandle, geometry.Point{X: 0, Y: 0}))
	resized, ok := s.PointerMove(geometry.Point{X: -1000, Y: -1000})
	require.True(t, ok)
	assert.Equal(t, geometry.Size{Width: geometry.MinWidth, Height: geometry.MinHeight}, resized.Size)
	s.PointerUp()
}

func TestGestureOnLockedFieldRefused(t *testing.T) {
	h := newHarness(t, ModeSign, 1)
	s := h.s
	a, _ := s.AddSigner("Alice", "alice@example.com")
	_, _ = s.AddSigner("Bob", "bob@example.com")
	f := place(t, s, models.KindSignature, geometry.Point{X: 10, Y: 10})

	snap := s.Snapshot()
	bob := snap.Signers[1]
	require.NoError(t, s.SelectSigner(bob.ID))

	assert.ErrorIs(t, s.PointerDown(f.ID, interaction.Body, geometry.Point{}), interaction.ErrLocked)
	assert.True(t, s.FieldsOnPage(1)[0].Locked)

	require.NoError(t, s.SelectSigner(a.ID))
	assert.False(t, s.FieldsOnPage(1)[0].Locked, "lock follows the current signer")
}

func TestStaleFieldOperationsAreNoOps(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	s := h.s

	_, ok, err := s.MoveField("field-gone", geometry.Point{X: 1, Y: 1})
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.DeleteField("field-gone"))

	f := place(t, s, models.KindText, geometry.Point{X: 10, Y: 10})
	require.NoError(t, s.PointerDown(f.ID, interaction.Body, geometry.Point{}))
	require.NoError(t, s.DeleteField(f.ID))

	_, ok = s.PointerMove(geometry.Point{X: 5, Y: 5})
	assert.False(t, ok)
	assert.Equal(t, "idle", s.Snapshot().Gesture)
}

func TestResizeFieldClampsAndNudge(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	s := h.s
	box := place(t, s, models.KindCheckbox, geometry.Point{X: 10, Y: 10})
	assert.Equal(t, geometry.Size{Width: 40, Height: 40}, box.Size)

	got, ok, err := s.ResizeField(box.ID, geometry.Size{Width: 45, Height: 45})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, geometry.Size{Width: 50, Height: 45}, got.Size)

	got, ok, err = s.NudgeField(box.ID, geometry.Point{X: -1, Y: 2})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, geometry.Point{X: 9, Y: 12}, got.Position)
}

func TestResizeFieldCapsHugeSize(t *testing.T) {
	h := newHarness(t, ModeEdit, 1)
	f := place(t, h.s, models.KindText, geometry.Point{X: 10, Y: 10})

	got, ok, err := h.s.ResizeField(f.ID, geometry.Size{Width: 1e10, Height: 40})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, geometry.Size{Width: geometry.MaxSide, Height: 40}, got.Size)
}

func TestPageCountEstimateAndClamp(t *testing.T) {
	h := newHarness(t, ModeEdit, 0)
	s := h.s

	snap := s.Snapshot()
	assert.Equal(t, EstimatedPages, snap.Pages)
	assert.True(t, snap.PagesEstimated)

	assert.Equal(t, EstimatedPages, s.SetPage(99))
	assert.Equal(t, 1, s.SetPage(-3))
}

// ============================================================
// Renderer
// ============================================================

func TestRendererFallbackRaisesNotice(t *testing.T) {
	h := newHarness(t, ModeEdit, 2)
	s := h.s

	assert.Equal(t, DisplayRequest{Stage: renderer.StageObject, Page: 1, Scale: 1}, s.Snapshot().Display)

	h.clock.Advance(6 * time.Second)

	snap := s.Snapshot()
	assert.Equal(t, renderer.StageFallback, snap.Renderer.Stage)
	assert.True(t, snap.Renderer.Loaded)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, FallbackMessage, snap.Notice.Message)
	assert.Equal(t, renderer.StageFallback, snap.Display.Stage)

	s.SetPage(2)
	assert.Equal(t, DisplayRequest{Stage: renderer.StageFallback, Page: 2, Scale: 1}, s.Snapshot().Display)
}

func TestRendererSelectionSurvivesPageChange(t *testing.T) {
	h := newHarness(t, ModeEdit, 3)
	s := h.s

	h.clock.Advance(2 * time.Second)
	assert.True(t, s.RendererFailed(renderer.StageEmbed, "no plugin"))
	assert.True(t, s.RendererLoaded(renderer.StageIframe))

	s.SetPage(3)
	s.ZoomIn()
	h.clock.Advance(time.Minute)

	st := s.RendererStatus()
	assert.Equal(t, renderer.StageIframe, st.Stage)
	assert.True(t, st.Loaded)
	assert.Equal(t, DisplayRequest{Stage: renderer.StageIframe, Page: 3, Scale: 1.1}, s.Snapshot().Display)

	_, ok := s.Notice()
	assert.False(t, ok)
}

// ============================================================
// Manager
// ============================================================

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(Options{Clock: &manualClock{}})

	s, err := m.Open(renderer.Document{ID: "doc-1"}, ModeSign)
	require.NoError(t, err)

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	assert.True(t, m.Close(s.ID()))
	assert.False(t, m.Close(s.ID()))
	_, ok = m.Get(s.ID())
	assert.False(t, ok)

	_, err = m.Open(renderer.Document{ID: "doc-2"}, Mode("view"))
	assert.ErrorIs(t, err, ErrInvalidMode)
}
