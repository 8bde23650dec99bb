package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/everkeep/backend/internal/model"
)

func donationPayload() map[string]any {
	return map[string]any{
		"donor_name":   "Ann",
		"amount_cents": float64(500),
		"currency":     "USD",
		"memorial": map[string]any{
			"id":   "mem-1",
			"name": "Walter Reed",
		},
	}
}

func TestRenderDonation(t *testing.T) {
	r := NewRenderer()
	segs, err := r.Render(model.StatementDonation, donationPayload(), language.English)
	require.NoError(t, err)
	require.NotEmpty(t, segs)

	var texts []string
	for _, s := range segs {
		texts = append(texts, s.Text)
	}
	require.Equal(t, []string{"Ann", " donated ", "$5.00", " in memory of ", "Walter Reed"}, texts)

	// the memorial segment carries the deep-link ref
	require.Equal(t, "memorial:mem-1", segs[4].SourceRef)
	require.True(t, segs[4].Derived)
	require.False(t, segs[1].Derived)
}

func TestRenderDonationFallbackDonor(t *testing.T) {
	r := NewRenderer()
	payload := donationPayload()
	delete(payload, "donor_name")
	segs, err := r.Render(model.StatementDonation, payload, language.English)
	require.NoError(t, err)
	require.Equal(t, "Someone", segs[0].Text)
}

func TestRenderMissingRequiredPaths(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(model.StatementDonation, map[string]any{"donor_name": "Ann"}, language.English)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, model.StatementDonation, ve.StatementType)
	require.ElementsMatch(t, []string{"amount_cents", "currency", "memorial.name"}, ve.MissingPaths)
}

func TestRenderUnknownType(t *testing.T) {
	r := NewRenderer()
	_, err := r.Render(model.StatementType("BOGUS"), map[string]any{}, language.English)
	require.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestRenderDropsInvalidDate(t *testing.T) {
	r := NewRenderer()
	payload := map[string]any{
		"memorial":   map[string]any{"name": "Walter Reed"},
		"updated_at": "not-a-date",
	}
	segs, err := r.Render(model.StatementObituaryUpdate, payload, language.English)
	require.NoError(t, err)
	for _, s := range segs {
		require.NotContains(t, s.Text, "not-a-date")
	}
}

func TestRenderEventNotice(t *testing.T) {
	r := NewRenderer()
	payload := map[string]any{
		"event": map[string]any{
			"id":              "ev-9",
			"title":           "Candlelight Vigil",
			"starts_at":       "2026-09-12T18:30:00Z",
			"expected_guests": float64(120),
		},
	}
	segs, err := r.Render(model.StatementEventNotice, payload, language.English)
	require.NoError(t, err)
	require.Equal(t, "Candlelight Vigil", segs[0].Text)
	require.Equal(t, "event:ev-9", segs[0].SourceRef)
	require.Equal(t, "Sep 12, 2026 6:30 PM", segs[2].Text)
	require.Equal(t, "120", segs[len(segs)-1].Text)
}

func TestRenderDefaultLocale(t *testing.T) {
	r := NewRenderer()
	segs, err := r.Render(model.StatementDonation, donationPayload(), language.Und)
	require.NoError(t, err)
	require.Equal(t, "$5.00", segs[2].Text)
}
