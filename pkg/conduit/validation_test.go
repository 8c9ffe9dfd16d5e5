package conduit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phorge-tools/conduit-client/pkg/conduit"
)

func TestValidateToken(t *testing.T) {
	t.Parallel()

	valid := "api-" + strings.Repeat("a", 28)
	require.Len(t, valid, 32)
	assert.NoError(t, conduit.ValidateToken(valid))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"too short", "api-" + strings.Repeat("a", 27)},
		{"too long", "api-" + strings.Repeat("a", 29)},
		{"wrong prefix", "cli-" + strings.Repeat("a", 28)},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := conduit.ValidateToken(tt.token)

			var validationErr *conduit.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestNormalizeAPIURL(t *testing.T) {
	t.Parallel()

	normalized, err := conduit.NormalizeAPIURL("https://phab.example.com/api")
	require.NoError(t, err)
	assert.Equal(t, "https://phab.example.com/api/", normalized)

	normalized, err = conduit.NormalizeAPIURL("https://phab.example.com/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://phab.example.com/api/", normalized)

	for _, raw := range []string{"", "phab.example.com/api", "/api/"} {
		_, err := conduit.NormalizeAPIURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseTaskIdentifier(t *testing.T) {
	t.Parallel()

	id, err := conduit.ParseTaskIdentifier("T123")
	require.NoError(t, err)
	assert.Equal(t, 123, id)

	id, err = conduit.ParseTaskIdentifier("456")
	require.NoError(t, err)
	assert.Equal(t, 456, id)

	for _, raw := range []string{"", "D123", "T", "Tabc", "-5", "0"} {
		_, err := conduit.ParseTaskIdentifier(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseRevisionIdentifier(t *testing.T) {
	t.Parallel()

	id, err := conduit.ParseRevisionIdentifier("D456")
	require.NoError(t, err)
	assert.Equal(t, 456, id)

	_, err = conduit.ParseRevisionIdentifier("T456")
	assert.Error(t, err)
}

func TestValidateTransactions(t *testing.T) {
	t.Parallel()

	err := conduit.ValidateTransactions(conduit.ResourceTask, []conduit.Transaction{
		{Type: "title", Value: "New title"},
		{Type: "status", Value: "resolved"},
		{Type: "projects.add", Value: []string{"PHID-PROJ-x"}},
	})
	assert.NoError(t, err)

	err = conduit.ValidateTransactions(conduit.ResourceRevision, []conduit.Transaction{
		{Type: "accept", Value: true},
		{Type: "comment", Value: "Ship it."},
	})
	assert.NoError(t, err)
}

func TestValidateTransactionsRejectsUnknownType(t *testing.T) {
	t.Parallel()

	err := conduit.ValidateTransactions(conduit.ResourceTask, []conduit.Transaction{
		{Type: "accept", Value: true},
	})

	var validationErr *conduit.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Error(), "accept")
}

func TestValidateTransactionsRejectsEmptyList(t *testing.T) {
	t.Parallel()

	err := conduit.ValidateTransactions(conduit.ResourceTask, nil)
	assert.Error(t, err)
}

func TestValidateTransactionsRejectsUnknownResource(t *testing.T) {
	t.Parallel()

	err := conduit.ValidateTransactions(conduit.ResourceKind("widget"), []conduit.Transaction{
		{Type: "title", Value: "x"},
	})
	assert.Error(t, err)
}

func TestValidatorStrictConstraints(t *testing.T) {
	t.Parallel()

	strict := &conduit.Validator{Strict: true}

	assert.NoError(t, strict.ValidateConstraints(map[string]any{
		"statuses":     []string{"open"},
		"assignedPHIDs": []any{"PHID-USER-a"},
		"createdStart": 1700000000,
		"query":        "crash",
	}))

	tests := []struct {
		name        string
		constraints map[string]any
	}{
		{"statuses not a list", map[string]any{"statuses": "open"}},
		{"epoch not an integer", map[string]any{"createdStart": "yesterday"}},
		{"query not a string", map[string]any{"query": 42}},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Error(t, strict.ValidateConstraints(tt.constraints))
		})
	}
}

func TestValidatorPassThrough(t *testing.T) {
	t.Parallel()

	relaxed := &conduit.Validator{Strict: false}

	// The pass-through path forwards anything and lets the server decide.
	assert.NoError(t, relaxed.ValidateConstraints(map[string]any{
		"statuses": "open",
		"whatever": struct{}{},
	}))
}
