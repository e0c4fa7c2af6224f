package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Crew Name", "CREWNAME"},
		{"crew_id", "CREWID"},
		{"  CLI-Id ", "CLIID"},
		{"Present Pay (Rs.)", "PRESENTPAYRS"},
		{"ABC-12345", "ABC12345"},
		{"", ""},
		{"***", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"05-03-2024", "2024-03-05", true},
		{"05/03/2024", "2024-03-05", true},
		{"31-12-2099", "2099-12-31", true},
		{" 01-01-2000 ", "2000-01-01", true},
		{"not-a-date", "", false},
		{"05-03", "", false},
		{"5-3-2024", "", false},
		{"05-03-24", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := ParseDate(c.in)
		assert.Equal(t, c.ok, ok, "ok flag for %q", c.in)
		assert.Equal(t, c.want, got, "result for %q", c.in)
	}
}

func TestDeriveStatus(t *testing.T) {
	today := "2024-06-15"
	assert.Equal(t, StatusUnknown, DeriveStatus("", today))
	assert.Equal(t, StatusValid, DeriveStatus("2024-06-15", today))
	assert.Equal(t, StatusValid, DeriveStatus("2099-12-31", today))
	assert.Equal(t, StatusExpired, DeriveStatus("2024-06-14", today))
	assert.Equal(t, StatusExpired, DeriveStatus("2000-01-01", today))
}

func TestAlphaPrefix(t *testing.T) {
	assert.Equal(t, "RPH", Lobby("RPH3020"))
	assert.Equal(t, "HWH", Division("HWH3463"))
	assert.Equal(t, "HWH", Division("hwh3463"))
	assert.Equal(t, "", Lobby("3020"))
	assert.Equal(t, "ABC", Lobby("ABC"))
	assert.Equal(t, "", Lobby(""))
}

func TestCrewMasterEmpty(t *testing.T) {
	assert.True(t, CrewMaster{CrewID: "RPH3020"}.Empty())
	assert.False(t, CrewMaster{CrewID: "RPH3020", Mobile: "9000000000"}.Empty())
	assert.False(t, CrewMaster{CrewID: "RPH3020", RetirementDate: "2031-01-31"}.Empty())
}
