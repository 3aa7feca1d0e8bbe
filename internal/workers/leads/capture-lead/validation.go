package capturelead

import (
	"broker-backoffice/internal/common/validation"
)

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"name":    {Type: "string", MinLength: validation.Int(1), MaxLength: validation.Int(200)},
			"email":   {Type: "string", Pattern: validation.EmailPattern},
			"phone":   {Type: "string", MaxLength: validation.Int(40)},
			"product": {Type: "string", MaxLength: validation.Int(40)},
			"message": {Type: "string", MaxLength: validation.Int(5000)},
			"pageUrl": {Type: "string"},
			"attachments": {
				Type:  "array",
				Items: &validation.Property{Type: "string"},
			},
		},
		Required: []string{"name", "email"},
	}
}
