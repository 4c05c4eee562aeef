package signers

import (
	"testing"

	"field-overlay/internal/overlay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = models.Signer{ID: "A", Name: "Alice Müller", Email: "alice@example.com"}
	bob   = models.Signer{ID: "B", Name: "Bob", Email: "BOB@example.org"}
)

func TestValidateReportsMissingSigner(t *testing.T) {
	fields := []models.Field{{ID: "f1", Kind: models.KindSignature, Page: 1, SignerID: "A"}}

	rep := Validate([]models.Signer{alice, bob}, fields)
	assert.False(t, rep.AllValid)
	assert.Equal(t, []string{"B"}, rep.Invalid)
	assert.Equal(t, "B", rep.FirstInvalid)

	fields = append(fields, models.Field{ID: "f2", Kind: models.KindDate, Page: 2, SignerID: "B"})
	rep = Validate([]models.Signer{alice, bob}, fields)
	assert.True(t, rep.AllValid)
	assert.Empty(t, rep.Invalid)
	assert.Empty(t, rep.FirstInvalid)
}

func TestValidateEmptyRosterIsInvalid(t *testing.T) {
	rep := Validate(nil, nil)
	assert.False(t, rep.AllValid)
	assert.Empty(t, rep.Invalid)
}

func TestValidateFirstInvalidFollowsRosterOrder(t *testing.T) {
	carol := models.Signer{ID: "C"}
	rep := Validate([]models.Signer{alice, carol, bob}, nil)
	assert.Equal(t, []string{"A", "C", "B"}, rep.Invalid)
	assert.Equal(t, "A", rep.FirstInvalid)
}

func TestValidIgnoresGenericFields(t *testing.T) {
	assert.False(t, Valid(alice, []models.Field{{ID: "x", Kind: models.KindText}}))
	assert.True(t, Valid(alice, []models.Field{{ID: "x", Kind: models.KindText, SignerID: "A"}}))
}

func TestRosterRemovePicksFirstRemaining(t *testing.T) {
	r := NewRoster()
	r.Add(alice)
	r.Add(bob)

	next, err := r.Remove("A")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "B", next.ID)

	next, err = r.Remove("B")
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Zero(t, r.Len())

	_, err = r.Remove("B")
	assert.ErrorIs(t, err, ErrUnknownSigner)
}

func TestRosterSearchFoldsCase(t *testing.T) {
	r := NewRoster()
	r.Add(alice)
	r.Add(bob)

	got := r.Search("MÜLLER")
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].ID)

	got = r.Search("bob@")
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ID)

	assert.Len(t, r.Search(""), 2)
	assert.Empty(t, r.Search("zed"))
}

func TestRosterListIsACopy(t *testing.T) {
	r := NewRoster()
	r.Add(alice)
	l := r.List()
	l[0].Name = "changed"

	got, ok := r.Get("A")
	require.True(t, ok)
	assert.Equal(t, "Alice Müller", got.Name)
}
