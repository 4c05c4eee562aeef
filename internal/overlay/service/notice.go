package service

import (
	"sync"
	"time"
)

// ============================================================
// Notices
// ============================================================

type NoticeKind string

const (
	NoticeError NoticeKind = "error"
	NoticeInfo  NoticeKind = "info"

	DefaultNoticeTTL = 3 * time.Second

	FallbackMessage = "PDF preview not available, using simplified mode"
)

// Notice is a transient user-facing message.
type Notice struct {
	Message   string     `json:"message"`
	Kind      NoticeKind `json:"kind"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// noticeBoard holds at most one notice. A newer notice replaces the older
// one. Expired notices read as absent, so nothing has to clear them.
type noticeBoard struct {
	mu      sync.Mutex
	current *Notice
	ttl     time.Duration
	now     func() time.Time
}

func newNoticeBoard(ttl time.Duration, now func() time.Time) *noticeBoard {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	return &noticeBoard{ttl: ttl, now: now}
}

func (b *noticeBoard) raise(kind NoticeKind, msg string) Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := Notice{Message: msg, Kind: kind, ExpiresAt: b.now().Add(b.ttl)}
	b.current = &n
	return n
}

// active returns the notice if it has not expired yet.
func (b *noticeBoard) active() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return Notice{}, false
	}
	if !b.now().Before(b.current.ExpiresAt) {
		b.current = nil
		return Notice{}, false
	}
	return *b.current, true
}
