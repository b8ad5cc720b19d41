package users

import (
	"database/sql"
	"testing"

	"github.com/preppro/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestApplyProfile(t *testing.T) {
	dob := "2008-04-01"
	p := &models.Profile{FirstName: "Ada", LastName: "Byron", StudentClass: "10", DateOfBirth: &dob}

	applyProfile(p, models.ProfileRequest{
		LastName: strPtr(" Lovelace "),
		Section:  strPtr("B"),
		Subjects: []string{"Math", " Math", "", "Physics"},
	})

	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, "Lovelace", p.LastName)
	assert.Equal(t, "10", p.StudentClass)
	assert.Equal(t, "B", p.Section)
	assert.Equal(t, []string{"Math", "Physics"}, p.Subjects)
	require.NotNil(t, p.DateOfBirth)

	applyProfile(p, models.ProfileRequest{DateOfBirth: strPtr("")})
	assert.Nil(t, p.DateOfBirth)
	assert.Equal(t, []string{"Math", "Physics"}, p.Subjects)
}

func TestApplyProfile_EmptySubjects(t *testing.T) {
	p := &models.Profile{}
	applyProfile(p, models.ProfileRequest{FirstName: strPtr("Sam")})
	assert.NotNil(t, p.Subjects)
	assert.Empty(t, p.Subjects)
}

func TestRank(t *testing.T) {
	entries := []ScoreEntry{
		{StudentID: 1, Average: 70},
		{StudentID: 2, Average: 90},
		{StudentID: 3, Average: 70},
		{StudentID: 4, Average: 0},
	}

	tests := []struct {
		name    string
		student int64
		want    *int
	}{
		{"top", 2, intPtr(1)},
		{"tie keeps input order", 1, intPtr(2)},
		{"tie second", 3, intPtr(3)},
		{"no attempts ranks last", 4, intPtr(4)},
		{"not in class", 9, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(entries, tt.student))
		})
	}
	// input slice is left alone
	assert.Equal(t, int64(1), entries[0].StudentID)
}

func intPtr(i int) *int { return &i }

func TestProfileScan(t *testing.T) {
	ps := profileScan{
		userID:   sql.NullInt64{Int64: 4, Valid: true},
		first:    sql.NullString{String: "Ada", Valid: true},
		subjects: []byte(`["Math","Physics"]`),
	}
	p, err := ps.profile()
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.FirstName)
	assert.Equal(t, []string{"Math", "Physics"}, p.Subjects)

	var missing profileScan
	p, err = missing.profile()
	require.NoError(t, err)
	assert.Nil(t, p, "no profile row behind the join")
}

func TestProfileScan_CorruptSubjects(t *testing.T) {
	ps := profileScan{
		userID:   sql.NullInt64{Int64: 4, Valid: true},
		subjects: []byte(`{"Math":true}`),
	}
	_, err := ps.profile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode subjects for user 4")
}
