// Package feature defines the subscription tiers and the feature flags they
// unlock. Routes behind a paid feature are gated with the RequireFeature
// middleware in internal/middleware.
package feature

// Tier names. They are stored on the institute row.
const (
	TierTrial        = "trial"
	TierStarter      = "starter"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

// Feature keys.
const (
	Dashboard  = "dashboard"
	Students   = "students"
	Teachers   = "teachers"
	Courses    = "courses"
	Attendance = "attendance"
	Library    = "library"
	Schedule   = "schedule"

	Messages    = "messages"
	Results     = "results"
	Assessments = "assessments"

	Analytics    = "analytics"
	Finance      = "finance"
	Reports      = "reports"
	APIAccess    = "api_access"
	Integrations = "integrations"
	Exams        = "exams"

	CustomBranding  = "custom_branding"
	MultiCampus     = "multi_campus"
	PrioritySupport = "priority_support"
)

// Limits caps tenant resources per tier. Zero means unlimited.
type Limits struct {
	MaxStudents int
	MaxTeachers int
	MaxCourses  int
}

var coreFeatures = []string{
	Dashboard, Students, Teachers, Courses, Attendance, Library, Schedule,
}

var starterFeatures = append(append([]string{}, coreFeatures...),
	Messages, Results, Assessments,
)

var professionalFeatures = append(append([]string{}, starterFeatures...),
	Analytics, Finance, Reports, APIAccess, Integrations, Exams,
)

var enterpriseFeatures = append(append([]string{}, professionalFeatures...),
	CustomBranding, MultiCampus, PrioritySupport,
)

var tierFeatures = map[string][]string{
	TierTrial:        coreFeatures,
	TierStarter:      starterFeatures,
	TierProfessional: professionalFeatures,
	TierEnterprise:   enterpriseFeatures,
}

var tierLimits = map[string]Limits{
	TierTrial:        {MaxStudents: 50, MaxTeachers: 10, MaxCourses: 5},
	TierStarter:      {MaxStudents: 200, MaxTeachers: 25, MaxCourses: 20},
	TierProfessional: {MaxStudents: 1000, MaxTeachers: 100, MaxCourses: 100},
	TierEnterprise:   {},
}

// Valid reports whether tier is a known tier name.
func Valid(tier string) bool {
	_, ok := tierFeatures[tier]
	return ok
}

// HasFeature reports whether tier unlocks key. Unknown tiers get only the
// core feature set.
func HasFeature(tier, key string) bool {
	features, ok := tierFeatures[tier]
	if !ok {
		features = coreFeatures
	}
	for _, f := range features {
		if f == key {
			return true
		}
	}
	return false
}

// LimitsFor returns the resource caps for tier. Unknown tiers get trial caps.
func LimitsFor(tier string) Limits {
	if l, ok := tierLimits[tier]; ok {
		return l
	}
	return tierLimits[TierTrial]
}
