package syncleads

import "broker-backoffice/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"since": {
				Type:        "string",
				Description: "RFC3339 timestamp; only CRM records modified after it are imported",
			},
		},
	}
}
