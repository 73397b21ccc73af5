package normalize

import (
	"regexp"
	"strings"

	"jobsync-engine/internal/domain"
)

const (
	LevelSenior  = "senior"
	LevelMid     = "mid"
	LevelJunior  = "junior"
	LevelIntern  = "intern"
	LevelUnknown = "unknown"

	RoleFrontend  = "frontend"
	RoleBackend   = "backend"
	RoleFullstack = "fullstack"
	RoleQA        = "qa"
	RoleDevOps    = "devops"
	RoleMobile    = "mobile"
	RoleData      = "data"
	RoleUnknown   = "unknown"
)

type levelRule struct {
	level string
	match *regexp.Regexp
}

// levelLadder is evaluated top to bottom; the first hit wins.
var levelLadder = []levelRule{
	{LevelSenior, regexp.MustCompile(`\b(senior|sr)\b`)},
	{LevelMid, regexp.MustCompile(`\b(mid|intermediate)\b`)},
	{LevelJunior, regexp.MustCompile(`\b(junior|jr)\b`)},
	{LevelIntern, regexp.MustCompile(`\b(intern|internship)\b`)},
}

type roleGroup struct {
	role     string
	keywords []string
}

var roleGroups = []roleGroup{
	{RoleFrontend, []string{"front-end", "frontend", "front end", "react", "vue", "angular", "javascript", "typescript"}},
	{RoleBackend, []string{"back-end", "backend", "node", "express", "django", "flask", "spring", "rails"}},
	{RoleFullstack, []string{"full-stack", "fullstack", "full stack"}},
	{RoleQA, []string{"qa", "quality assurance", "test", "tester", "automation"}},
	{RoleDevOps, []string{"devops", "infrastructure", "docker", "kubernetes"}},
	{RoleMobile, []string{"mobile", "react native", "flutter", "android", "ios"}},
	{RoleData, []string{"data", "ml", "ai", "python"}},
}

// DetectTags classifies a free-text job title into an experience level and
// the role categories it mentions.
func DetectTags(title string) domain.Tags {
	lower := strings.ToLower(title)
	return domain.Tags{
		Level: DetectLevel(lower),
		Roles: DetectRoles(lower),
	}
}

func DetectLevel(title string) string {
	lower := strings.ToLower(title)
	for _, r := range levelLadder {
		if r.match.MatchString(lower) {
			return r.level
		}
	}
	return LevelUnknown
}

// DetectRoles returns every role group with a keyword contained in title.
// Never empty.
func DetectRoles(title string) []string {
	lower := strings.ToLower(title)
	var roles []string
	for _, g := range roleGroups {
		for _, k := range g.keywords {
			if strings.Contains(lower, k) {
				roles = append(roles, g.role)
				break
			}
		}
	}
	if len(roles) == 0 {
		roles = []string{RoleUnknown}
	}
	return roles
}

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
