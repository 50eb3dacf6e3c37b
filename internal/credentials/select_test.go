package credentials

import (
	"testing"

	"wallet-exchange-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, vc map[string]any) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "did:key:issuer", "vc": vc})
	s, err := token.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

func kccDefinition() *models.PresentationDefinition {
	return &models.PresentationDefinition{
		ID: "pd-kcc",
		InputDescriptors: []models.InputDescriptor{{
			ID: "known-customer",
			Constraints: models.Constraints{Fields: []models.Field{
				{Path: []string{"$.type[*]"}, Filter: &models.Filter{Type: "string", Const: "KnownCustomerCredential"}},
				{Path: []string{"$.credentialSubject.countryOfResidence"}, Filter: &models.Filter{Type: "string", Pattern: "^[A-Z]{2}$"}},
			}},
		}},
	}
}

func TestSelect(t *testing.T) {
	kcc := issue(t, map[string]any{
		"type":              []any{"VerifiableCredential", "KnownCustomerCredential"},
		"credentialSubject": map[string]any{"countryOfResidence": "US"},
	})
	other := issue(t, map[string]any{
		"type":              []any{"VerifiableCredential", "EmploymentCredential"},
		"credentialSubject": map[string]any{"employer": "ACME"},
	})

	selected := Select([]string{other, kcc, "not-a-jwt"}, kccDefinition())
	assert.Equal(t, []string{kcc}, selected)

	assert.Nil(t, Select([]string{kcc}, nil))
}

func TestSatisfies(t *testing.T) {
	kcc := issue(t, map[string]any{
		"type":              []any{"KnownCustomerCredential"},
		"credentialSubject": map[string]any{"countryOfResidence": "usa"},
	})

	err := Satisfies([]string{kcc}, kccDefinition())
	assert.ErrorIs(t, err, ErrRequirementsNotMet, "pattern rejects lowercase country")

	assert.NoError(t, Satisfies(nil, nil))
	assert.ErrorIs(t, Satisfies(nil, kccDefinition()), ErrRequirementsNotMet)
}

func TestEvaluate(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": []any{"x", "y"}, "c d": 1.0},
	}

	tests := []struct {
		path string
		want []any
	}{
		{"$.a.b[0]", []any{"x"}},
		{"$.a.b[-1]", []any{"y"}},
		{"$.a.b[*]", []any{"x", "y"}},
		{"$.a['c d']", []any{1.0}},
		{"$.missing", nil},
	}
	for _, tt := range tests {
		got, err := evaluate(doc, tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := evaluate(doc, "a.b")
	assert.Error(t, err)
	_, err = evaluate(doc, "$.a[")
	assert.Error(t, err)
}
