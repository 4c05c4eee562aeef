package signers

import (
	"field-overlay/internal/overlay/models"
)

// ============================================================
// Validation
// ============================================================

// Report is the outcome of checking that every signer owns a signature field.
type Report struct {
	AllValid     bool     `json:"allValid"`
	Invalid      []string `json:"invalid"`
	FirstInvalid string   `json:"firstInvalid,omitempty"`
}

// Valid reports whether signer owns at least one signature field.
func Valid(signer models.Signer, fields []models.Field) bool {
	for _, f := range fields {
		if f.SignerID == signer.ID {
			return true
		}
	}
	return false
}

// Validate checks the whole roster. Invalid ids keep roster order, so
// FirstInvalid is the lowest-index offender. An empty roster is never valid.
func Validate(roster []models.Signer, fields []models.Field) Report {
	owners := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.IsSignatureField() {
			owners[f.SignerID] = struct{}{}
		}
	}

	rep := Report{Invalid: []string{}}
	for _, s := range roster {
		if _, ok := owners[s.ID]; !ok {
			rep.Invalid = append(rep.Invalid, s.ID)
		}
	}
	rep.AllValid = len(roster) > 0 && len(rep.Invalid) == 0
	if len(rep.Invalid) > 0 {
		rep.FirstInvalid = rep.Invalid[0]
	}
	return rep
}
