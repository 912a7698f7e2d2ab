package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canvass/pkg/domain"
)

func writeWorkflow(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoaderLoadsYAMLDefinition(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "onboarding.yaml", `
id: onboarding
questions:
  - id: name
    type: string
    prompt: "Your name?"
  - id: has_pet
    type: boolean
    child:
      workflow: pet_details
      condition: has_pet == true
  - id: region
    type: choice
    choices: [us-east-1, eu-west-1]
  - id: token
    type: string
    sensitive: true
    env_var: API_TOKEN
`)

	questions, err := NewLoader(dir).LoadWorkflow(context.Background(), "onboarding")
	require.NoError(t, err)
	require.Len(t, questions, 4)

	assert.Equal(t, "name", questions[0].ID)
	assert.Equal(t, domain.QuestionString, questions[0].Type)
	assert.Equal(t, "Your name?", questions[0].Prompt)

	require.NotNil(t, questions[1].Child)
	assert.Equal(t, "pet_details", questions[1].Child.WorkflowID)
	assert.Equal(t, "has_pet == true", questions[1].Child.Condition)

	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, questions[2].Choices)

	assert.True(t, questions[3].Sensitive)
	assert.Equal(t, "API_TOKEN", questions[3].EnvVar)
}

func TestLoaderYMLExtension(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "short.yml", "questions:\n  - id: a\n    type: string\n")

	questions, err := NewLoader(dir).LoadWorkflow(context.Background(), "short")
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestLoaderMissingWorkflow(t *testing.T) {
	_, err := NewLoader(t.TempDir()).LoadWorkflow(context.Background(), "ghost")
	assert.ErrorContains(t, err, "workflow not found")
}

func TestLoaderRejectsMismatchedID(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "alpha.yaml", "id: beta\nquestions: []\n")

	_, err := NewLoader(dir).LoadWorkflow(context.Background(), "alpha")
	assert.ErrorContains(t, err, "declares id")
}

func TestLoaderRejectsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "dupe.yaml", `
questions:
  - id: a
    type: string
  - id: a
    type: string
`)
	writeWorkflow(t, dir, "badtype.yaml", `
questions:
  - id: a
    type: decimal
`)
	writeWorkflow(t, dir, "noid.yaml", `
questions:
  - type: string
`)

	loader := NewLoader(dir)
	ctx := context.Background()

	_, err := loader.LoadWorkflow(ctx, "dupe")
	assert.ErrorContains(t, err, "duplicate question id")

	_, err = loader.LoadWorkflow(ctx, "badtype")
	assert.ErrorContains(t, err, "unknown type")

	_, err = loader.LoadWorkflow(ctx, "noid")
	assert.ErrorContains(t, err, "has no id")
}

func TestLoaderRejectsPathTraversal(t *testing.T) {
	_, err := NewLoader(t.TempDir()).LoadWorkflow(context.Background(), "../escape")
	assert.ErrorContains(t, err, "invalid workflow id")
}

func TestLoaderListWorkflows(t *testing.T) {
	dir := t.TempDir()
	writeWorkflow(t, dir, "b.yaml", "questions: []\n")
	writeWorkflow(t, dir, "a.yml", "questions: []\n")
	writeWorkflow(t, dir, "readme.md", "not a workflow\n")

	ids, err := NewLoader(dir).ListWorkflows()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
