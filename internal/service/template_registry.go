package service

import "github.com/everkeep/backend/internal/model"

// defaultTemplates is the full statement-template registry, resolved once at
// renderer construction. Adding a statement type means adding an entry here;
// the renderer itself stays closed.
func defaultTemplates() map[model.StatementType]Template {
	return map[model.StatementType]Template{
		model.StatementDonation: {
			RequiredPaths: []string{"amount_cents", "currency", "memorial.name"},
			Segments: []SegmentSpec{
				{Kind: SegField, Path: "donor_name", Fallback: "Someone"},
				{Kind: SegText, Text: " donated "},
				{Kind: SegMoney, Path: "amount_cents", CurrencyPath: "currency"},
				{Kind: SegText, Text: " in memory of "},
				{Kind: SegField, Path: "memorial.name", SourceIDPath: "memorial.id", SourceIDPrefix: "memorial"},
			},
		},
		model.StatementMemorialUpdate: {
			RequiredPaths: []string{"memorial.name"},
			Segments: []SegmentSpec{
				{Kind: SegField, Path: "actor_name", Fallback: "A caretaker"},
				{Kind: SegText, Text: " updated the memorial for "},
				{Kind: SegField, Path: "memorial.name", SourceIDPath: "memorial.id", SourceIDPrefix: "memorial"},
			},
		},
		model.StatementFundraiserUpdate: {
			RequiredPaths: []string{"fundraiser.title", "raised_cents", "currency"},
			Segments: []SegmentSpec{
				{Kind: SegField, Path: "fundraiser.title", SourceIDPath: "fundraiser.id", SourceIDPrefix: "fundraiser"},
				{Kind: SegText, Text: " has raised "},
				{Kind: SegMoney, Path: "raised_cents", CurrencyPath: "currency"},
				{Kind: SegText, Text: " of its goal"},
			},
		},
		model.StatementObituaryUpdate: {
			RequiredPaths: []string{"memorial.name"},
			Segments: []SegmentSpec{
				{Kind: SegText, Text: "The obituary for "},
				{Kind: SegField, Path: "memorial.name", SourceIDPath: "obituary.id", SourceIDPrefix: "obituary"},
				{Kind: SegText, Text: " was updated "},
				{Kind: SegDate, Path: "updated_at"},
			},
		},
		model.StatementEventNotice: {
			RequiredPaths: []string{"event.title", "event.starts_at"},
			Segments: []SegmentSpec{
				{Kind: SegField, Path: "event.title", SourceIDPath: "event.id", SourceIDPrefix: "event"},
				{Kind: SegText, Text: " begins "},
				{Kind: SegDate, Path: "event.starts_at"},
				{Kind: SegText, Text: " · guests expected: "},
				{Kind: SegNumber, Path: "event.expected_guests"},
			},
		},
		model.StatementAISummary: {
			RequiredPaths: []string{"summary"},
			Segments: []SegmentSpec{
				{Kind: SegText, Text: "Remembering: "},
				{Kind: SegField, Path: "summary", SourceIDPath: "source_id", SourceIDPrefix: "summary"},
			},
		},
	}
}
