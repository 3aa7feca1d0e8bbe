package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func contactSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"name":    {Type: "string", MinLength: Int(1), MaxLength: Int(120)},
			"email":   {Type: "string", Pattern: EmailPattern},
			"product": {Type: "string", Enum: []string{"vida", "auto", "frota", "saude", "consorcio", "outros", ""}},
			"age":     {Type: "integer", Minimum: Float(18)},
		},
		Required:             []string{"name", "email"},
		AdditionalProperties: Bool(false),
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name       string
		input      map[string]interface{}
		valid      bool
		errorField string
	}{
		{
			name:  "valid contact",
			input: map[string]interface{}{"name": "Maria Silva", "email": "maria@x.com", "product": "auto"},
			valid: true,
		},
		{
			name:       "missing email",
			input:      map[string]interface{}{"name": "Maria"},
			errorField: "email",
		},
		{
			name:       "malformed email",
			input:      map[string]interface{}{"name": "Maria", "email": "maria@x"},
			errorField: "email",
		},
		{
			name:       "unknown product",
			input:      map[string]interface{}{"name": "Maria", "email": "maria@x.com", "product": "boat"},
			errorField: "product",
		},
		{
			name:       "below minimum",
			input:      map[string]interface{}{"name": "Maria", "email": "maria@x.com", "age": 12},
			errorField: "age",
		},
		{
			name:       "extra field",
			input:      map[string]interface{}{"name": "Maria", "email": "maria@x.com", "admin": true},
			errorField: "(root)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, contactSchema())
			assert.Equal(t, tt.valid, result.Valid, GetErrorMessages(result))
			if tt.errorField != "" {
				assert.True(t, result.HasFieldError(tt.errorField), GetErrorMessages(result))
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("maria@x.com"))
	assert.True(t, IsValidEmail("a.b+c@sub.domain.br"))
	assert.False(t, IsValidEmail("maria@x"))
	assert.False(t, IsValidEmail("maria x@y.com"))
	assert.False(t, IsValidEmail(""))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5561999949724", NormalizePhone("(61) 99994-9724"))
	assert.Equal(t, "5561999949724", NormalizePhone("+55 61 99994-9724"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}
