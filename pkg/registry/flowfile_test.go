package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florelab/stepwise/pkg/domain"
)

const sampleFlow = `
first: email
steps:
  - id: email
    title: "Your email"
    fields: {email: email}
    next:
      - to: verifyCode
        when: 'answers.isExistingUser == true'
      - to: newUser

  - id: verifyCode
    fields: {verificationCode: string}
    reachable: 'answers.isExistingUser == true'
    next: [{to: iconChoice}]

  - id: newUser
    fields: {firstName: string, phone: 'phone?'}
    next: [{to: iconChoice}]

  - id: iconChoice
    fields: {iconChoice: string}
    next: [{to: iconPicker}]

  - id: iconPicker
    fields: {icon: string}
    skip_if: 'answers.iconChoice == "withoutIcon"'
    reachable: 'answers.iconChoice == "withIcon"'
    next: [{to: done}]

  - id: done
    title: "All set"
    no_validate: true
`

func TestParseFlow(t *testing.T) {
	reg, err := ParseFlow([]byte(sampleFlow))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	assert.Equal(t, domain.StepID("email"), reg.First())
	assert.Equal(t, 6, reg.Len())

	step, ok := reg.Get("email")
	require.True(t, ok)
	assert.Equal(t, "Your email", step.Title)
	assert.Equal(t, []domain.StepID{"verifyCode", "newUser"}, step.Branches)
}

func TestParseFlowBranchConditions(t *testing.T) {
	reg, err := ParseFlow([]byte(sampleFlow))
	require.NoError(t, err)

	next, err := reg.NextStepID("email", domain.AnswerSet{"isExistingUser": true})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("verifyCode"), next)

	next, err = reg.NextStepID("email", domain.AnswerSet{})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("newUser"), next, "entry without when is the default branch")
}

func TestParseFlowSkipChain(t *testing.T) {
	reg, err := ParseFlow([]byte(sampleFlow))
	require.NoError(t, err)

	next, err := reg.NextStepID("iconChoice", domain.AnswerSet{"iconChoice": "withoutIcon"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("done"), next)

	next, err = reg.NextStepID("iconChoice", domain.AnswerSet{"iconChoice": "withIcon"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("iconPicker"), next)
}

func TestParseFlowReachability(t *testing.T) {
	reg, err := ParseFlow([]byte(sampleFlow))
	require.NoError(t, err)

	assert.False(t, reg.CanEnter("verifyCode", domain.AnswerSet{}))
	assert.True(t, reg.CanEnter("verifyCode", domain.AnswerSet{"isExistingUser": true}))
}

func TestParseFlowFieldTypes(t *testing.T) {
	reg, err := ParseFlow([]byte(sampleFlow))
	require.NoError(t, err)

	errs := reg.ValidateStep("email", domain.AnswerSet{"email": "nope"})
	require.Len(t, errs, 1)

	assert.Nil(t, reg.ValidateStep("newUser", domain.AnswerSet{"firstName": "Ada"}),
		"optional phone may be absent")
}

func TestParseFlowRejectsBadExpression(t *testing.T) {
	bad := `
first: a
steps:
  - id: a
    next:
      - to: b
        when: 'answers.x ==='
  - id: b
`
	_, err := ParseFlow([]byte(bad))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr, "expression typos surface at load time")
}

func TestParseFlowRejectsMissingEntry(t *testing.T) {
	_, err := ParseFlow([]byte("steps:\n  - id: a\n"))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseFlowRejectsUnknownFieldType(t *testing.T) {
	bad := `
first: a
steps:
  - id: a
    fields: {x: mystery}
`
	_, err := ParseFlow([]byte(bad))
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadFlowFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFlow), 0o644))

	reg, err := LoadFlowFile(path)
	require.NoError(t, err)
	assert.Equal(t, domain.StepID("email"), reg.First())

	_, err = LoadFlowFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
