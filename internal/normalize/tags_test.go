package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobsync-engine/internal/domain"
)

func TestDetectTags(t *testing.T) {
	t.Run("Should identify every experience level", func(t *testing.T) {
		cases := map[string]string{
			"Senior Software Engineer":     LevelSenior,
			"Sr. Backend Developer":        LevelSenior,
			"Mid-level Frontend Developer": LevelMid,
			"Intermediate QA Engineer":     LevelMid,
			"Junior DevOps Engineer":       LevelJunior,
			"Jr. Mobile App Developer":     LevelJunior,
			"Software Engineer Intern":     LevelIntern,
			"Data Science Internship":      LevelIntern,
			"Software Developer":           LevelUnknown,
		}
		for title, want := range cases {
			assert.Equal(t, want, DetectTags(title).Level, title)
		}
	})

	t.Run("Should prefer the higher rung when several levels appear", func(t *testing.T) {
		assert.Equal(t, LevelSenior, DetectLevel("Junior to Senior Engineer"))
		assert.Equal(t, LevelMid, DetectLevel("Mid or Junior Developer"))
	})

	t.Run("Should not match level keywords inside other words", func(t *testing.T) {
		assert.Equal(t, LevelUnknown, DetectLevel("Internal Tools Engineer"))
		assert.Equal(t, LevelUnknown, DetectLevel("Seniority Analyst"))
	})

	t.Run("Should detect a single role", func(t *testing.T) {
		assert.Equal(t, []string{RoleFrontend}, DetectTags("React Developer").Roles)
	})

	t.Run("Should detect multiple roles", func(t *testing.T) {
		roles := DetectTags("Full Stack Node.js and React Developer").Roles
		assert.ElementsMatch(t, []string{RoleFrontend, RoleBackend, RoleFullstack}, roles)
	})

	t.Run("Should be case-insensitive for level and roles", func(t *testing.T) {
		tags := DetectTags("SENIOR FULL-STACK ENGINEER (DJANGO & VUE)")
		assert.Equal(t, LevelSenior, tags.Level)
		assert.Subset(t, tags.Roles, []string{RoleBackend, RoleFrontend, RoleFullstack})
	})

	t.Run("Should fall back to unknown role", func(t *testing.T) {
		assert.Equal(t, []string{RoleUnknown}, DetectTags("Product Manager").Roles)
	})

	t.Run("Should handle empty title", func(t *testing.T) {
		assert.Equal(t, domain.Tags{Level: LevelUnknown, Roles: []string{RoleUnknown}}, DetectTags(""))
	})

	t.Run("Should always return a known level and unique non-empty roles", func(t *testing.T) {
		levels := map[string]bool{LevelSenior: true, LevelMid: true, LevelJunior: true, LevelIntern: true, LevelUnknown: true}
		titles := []string{
			"", "QA Automation Tester", "Senior Data Engineer (Python, ML)",
			"iOS and Android Mobile Developer", "DevOps / Kubernetes Infrastructure",
			"Sr Jr Mid Intern", "   ", "Chef",
		}
		for _, title := range titles {
			tags := DetectTags(title)
			assert.True(t, levels[tags.Level], title)
			assert.NotEmpty(t, tags.Roles, title)
			seen := map[string]bool{}
			for _, r := range tags.Roles {
				assert.False(t, seen[r], "duplicate role %q for %q", r, title)
				seen[r] = true
			}
		}
	})
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Senior Go Engineer", CleanText("  Senior Go \n\t Engineer "))
	assert.Equal(t, "", CleanText(" \n "))
}
