package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c137req/crewbase/internal/roster"
)

func _seed_search(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	_write_sheet(t, s, func(w *SheetWriter) {
		for _, rec := range []roster.CrewMaster{
			{CrewID: "RPH3020", CrewName: "A K SHARMA", Designation: "LP(G)", Mobile: "9830000000", CliID: "HWH3463"},
			{CrewID: "RPH3021", CrewName: "B DAS", Designation: "ALP", Mobile: "9830000001", CliID: "SDAH1200"},
			{CrewID: "HWH2040", CrewName: "RPH KUMAR", Designation: "LP(G)", Mobile: "9830000002", CliID: "HWH3463"},
			{CrewID: "XYZ9", CrewName: "JUNK ROW", Designation: "ALP"},
			{CrewID: "K5", CrewName: "SHORT LOBBY", Designation: "ALP"},
		} {
			require.NoError(t, w.UpsertCrew(ctx, rec))
		}
	})
}

func TestSuggestRanksPrefixFirst(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)

	got, err := s.Suggest(context.Background(), "RPH", "", "", "", 12)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// crew-id prefix hits before name hits
	assert.Equal(t, "RPH3020", got[0].CrewID)
	assert.Equal(t, "RPH3021", got[1].CrewID)
	assert.Equal(t, "HWH2040", got[2].CrewID)
}

func TestSuggestFilters(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)
	ctx := context.Background()

	got, err := s.Suggest(ctx, "RPH", "RPH", "", "", 12)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "RPH3020", got[0].CrewID)

	got, err = s.Suggest(ctx, "RPH", "", "LP(G)", "", 12)
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = s.Suggest(ctx, "RPH", "", "", "SDAH", 12)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RPH3021", got[0].CrewID)
}

func TestSuggestEmptyQueryAndLimit(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)
	ctx := context.Background()

	got, err := s.Suggest(ctx, "", "", "", "", 12)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Suggest(ctx, "RPH", "", "", "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "RPH3020", got[0].CrewID)
}

func TestLobbies(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)
	ctx := context.Background()

	// one-letter and empty alphabetic prefixes are junk
	got, err := s.Lobbies(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"HWH", "RPH", "XYZ"}, got)

	got, err = s.Lobbies(ctx, "SDAH")
	require.NoError(t, err)
	assert.Equal(t, []string{"RPH"}, got)
}

func TestDesignations(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)

	got, err := s.Designations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ALP", "LP(G)"}, got)
}

func TestFetchMeta(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)

	meta, err := s.FetchMeta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ALP", "LP(G)"}, meta.Designations)
	// only crews with a 4-digit suffix count, so XYZ9 drops out here
	assert.Equal(t, []string{"HWH", "RPH"}, meta.Lobbies)
}

func TestProfile(t *testing.T) {
	s := _open_test(t)
	_seed_search(t, s)
	ctx := context.Background()

	_write_sheet(t, s, func(w *SheetWriter) {
		for _, q := range []roster.RouteQualification{
			{CrewID: "RPH3020", SectionCode: "ABC-DEF", RouteNo: "100", ValidTill: "2090-06-30", Status: roster.StatusValid, SourceFile: "lr.xlsx"},
			{CrewID: "RPH3020", SectionCode: "ABC-DEF", RouteNo: "200", ValidTill: "2099-12-31", Status: roster.StatusValid, SourceFile: "lr.xlsx"},
			{CrewID: "RPH3020", SectionCode: "GHI-JKL", RouteNo: "300", Status: roster.StatusUnknown, SourceFile: "lr.xlsx"},
		} {
			require.NoError(t, w.QueueRoute(ctx, q))
		}
	})

	p, err := s.Profile(ctx, "RPH3020")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "A K SHARMA", p.CrewName)
	require.Len(t, p.Routes, 3)
	// newest valid-till first, undated routes last
	assert.Equal(t, "200", p.Routes[0].RouteNo)
	assert.Equal(t, "100", p.Routes[1].RouteNo)
	assert.Equal(t, "300", p.Routes[2].RouteNo)
	assert.Empty(t, p.Routes[2].ValidTill)

	missing, err := s.Profile(ctx, "NOPE1234")
	require.NoError(t, err)
	assert.Nil(t, missing)
}