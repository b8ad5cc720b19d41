package users

import (
	"sort"
	"strings"

	"github.com/preppro/backend/internal/models"
)

// applyProfile copies every field set in req onto p.
func applyProfile(p *models.Profile, req models.ProfileRequest) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&p.FirstName, req.FirstName)
	set(&p.LastName, req.LastName)
	set(&p.PhoneNumber, req.PhoneNumber)
	set(&p.Address, req.Address)
	set(&p.Bio, req.Bio)
	set(&p.Department, req.Department)
	set(&p.StudentClass, req.StudentClass)
	set(&p.Section, req.Section)

	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			p.DateOfBirth = nil
		} else {
			dob := *req.DateOfBirth
			p.DateOfBirth = &dob
		}
	}
	if req.ProfilePhoto != nil {
		if *req.ProfilePhoto == "" {
			p.ProfilePhoto = nil
		} else {
			photo := *req.ProfilePhoto
			p.ProfilePhoto = &photo
		}
	}
	if req.Subjects != nil {
		p.Subjects = normalizeSubjects(req.Subjects)
	}
	if p.Subjects == nil {
		p.Subjects = []string{}
	}
}

func normalizeSubjects(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ScoreEntry is one classmate's average attempt score.
type ScoreEntry struct {
	StudentID int64
	Average   float64
}

// Rank returns the 1-based position of studentID when entries are ordered by
// average score, highest first. Ties keep their input order. Nil means the
// student is not among entries.
func Rank(entries []ScoreEntry, studentID int64) *int {
	sorted := make([]ScoreEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Average > sorted[j].Average
	})
	for i, e := range sorted {
		if e.StudentID == studentID {
			rank := i + 1
			return &rank
		}
	}
	return nil
}
