package feature_test

import (
	"testing"

	"github.com/gwon-omega/eduflow-server/internal/feature"
	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, feature.Valid(feature.TierTrial))
	assert.True(t, feature.Valid(feature.TierEnterprise))
	assert.False(t, feature.Valid("platinum"))
	assert.False(t, feature.Valid(""))
}

func TestTiersAreCumulative(t *testing.T) {
	// Every tier keeps the core set.
	for _, tier := range []string{feature.TierTrial, feature.TierStarter, feature.TierProfessional, feature.TierEnterprise} {
		assert.True(t, feature.HasFeature(tier, feature.Students), tier)
		assert.True(t, feature.HasFeature(tier, feature.Attendance), tier)
	}

	assert.False(t, feature.HasFeature(feature.TierTrial, feature.Finance))
	assert.False(t, feature.HasFeature(feature.TierStarter, feature.Finance))
	assert.True(t, feature.HasFeature(feature.TierProfessional, feature.Finance))
	assert.True(t, feature.HasFeature(feature.TierEnterprise, feature.Finance))

	assert.False(t, feature.HasFeature(feature.TierProfessional, feature.MultiCampus))
	assert.True(t, feature.HasFeature(feature.TierEnterprise, feature.MultiCampus))
}

func TestUnknownTierFallsBackToCore(t *testing.T) {
	assert.True(t, feature.HasFeature("platinum", feature.Students))
	assert.False(t, feature.HasFeature("platinum", feature.Finance))
}

func TestLimitsFor(t *testing.T) {
	trial := feature.LimitsFor(feature.TierTrial)
	assert.Equal(t, 50, trial.MaxStudents)

	// Unknown tiers are treated as trial.
	assert.Equal(t, trial, feature.LimitsFor("platinum"))

	// Enterprise is uncapped.
	enterprise := feature.LimitsFor(feature.TierEnterprise)
	assert.Zero(t, enterprise.MaxStudents)
	assert.Zero(t, enterprise.MaxTeachers)
	assert.Zero(t, enterprise.MaxCourses)
}
