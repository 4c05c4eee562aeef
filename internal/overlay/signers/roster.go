package signers

import (
	"errors"
	"strings"
	"sync"

	"field-overlay/internal/overlay/models"

	"golang.org/x/text/cases"
)

// ============================================================
// Roster
// ============================================================

var ErrUnknownSigner = errors.New("signer not in roster")

// Roster is the ordered list of signers of one workflow.
type Roster struct {
	mu      sync.Mutex
	signers []models.Signer
}

func NewRoster() *Roster {
	return &Roster{}
}

func (r *Roster) Add(s models.Signer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signers = append(r.signers, s)
}

// Remove drops the signer and returns the roster entry that should become
// current if the removed signer was current: the first remaining signer.
func (r *Roster) Remove(id string) (next *models.Signer, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return nil, ErrUnknownSigner
	}
	r.signers = append(r.signers[:idx:idx], r.signers[idx+1:]...)
	if len(r.signers) == 0 {
		return nil, nil
	}
	first := r.signers[0]
	return &first, nil
}

func (r *Roster) Get(id string) (models.Signer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return models.Signer{}, false
	}
	return r.signers[idx], true
}

// List returns the signers in roster order.
func (r *Roster) List() []models.Signer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Signer, len(r.signers))
	copy(out, r.signers)
	return out
}

func (r *Roster) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signers)
}

// Search matches term against name and email, ignoring case. An empty term
// matches everyone.
func (r *Roster) Search(term string) []models.Signer {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(term))

	var out []models.Signer
	for _, s := range r.List() {
		if needle == "" ||
			strings.Contains(fold.String(s.Name), needle) ||
			strings.Contains(fold.String(s.Email), needle) {
			out = append(out, s)
		}
	}
	return out
}

func (r *Roster) indexOf(id string) int {
	for i, s := range r.signers {
		if s.ID == id {
			return i
		}
	}
	return -1
}
