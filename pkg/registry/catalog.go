// pkg/registry/catalog.go
package registry

import (
	sn "broker-backoffice/internal/workers/communication/send-notification"
	sl "broker-backoffice/internal/workers/crm/sync-leads"
	srl "broker-backoffice/internal/workers/data-access/search-leads"
	cl "broker-backoffice/internal/workers/leads/capture-lead"
	ci "broker-backoffice/internal/workers/leads/classify-intent"
	al "broker-backoffice/internal/workers/pipeline/advance-lead"
)

const catalogVersion = "1.0.0"

func fields(names ...string) map[string]interface{} {
	props := make(map[string]interface{}, len(names))
	for _, n := range names {
		props[n] = map[string]interface{}{}
	}
	return map[string]interface{}{"type": "object", "properties": props}
}

// Catalog describes the job workers shipped by the worker manager.
func Catalog() *ActivityRegistry {
	return &ActivityRegistry{
		Version: catalogVersion,
		Activities: []Activity{
			{
				ID:                   cl.TaskType,
				DisplayName:          "Capture Lead",
				Description:          "Stores an external lead on the board and queues the intake e-mails",
				Category:             "leads",
				Version:              catalogVersion,
				TaskType:             cl.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("name", "email", "phone", "product", "message", "pageUrl", "attachments"),
				OutputSchema:         fields("leadId", "product", "status", "notificationsQueued"),
				ErrorCodes:           []string{"CONTACT_VALIDATION_FAILED", "LEAD_STORE_WRITE_FAILED"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"lead-intake"},
				Tags:                 []string{"intake"},
			},
			{
				ID:                   ci.TaskType,
				DisplayName:          "Classify Intent",
				Description:          "Maps free text to a product category suggestion",
				Category:             "leads",
				Version:              catalogVersion,
				TaskType:             ci.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("text", "leadId"),
				OutputSchema:         fields("category", "title", "rationale", "actionLabel", "actionRoute", "actionUrl", "navigable", "matched"),
				ErrorCodes:           []string{"INVALID_INPUT"},
				Timeout:              "5s",
				Retries:              0,
				Workflows:            []string{"lead-intake"},
				Tags:                 []string{"intent"},
			},
			{
				ID:                   al.TaskType,
				DisplayName:          "Advance Lead",
				Description:          "Moves a lead to another pipeline lane, attaching a proposal when it enters quoting",
				Category:             "pipeline",
				Version:              catalogVersion,
				TaskType:             al.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("leadId", "targetStatus", "proposalValue", "proposalFileUrl"),
				OutputSchema:         fields("leadId", "status", "moved", "estimatedValue", "proposalDate"),
				ErrorCodes:           []string{"INVALID_INPUT", "INVALID_LEAD_STATUS", "LEAD_NOT_FOUND", "PROPOSAL_REQUIRED"},
				Timeout:              "15s",
				Retries:              3,
				Workflows:            []string{"lead-intake"},
				Tags:                 []string{"board"},
			},
			{
				ID:                   sn.TaskType,
				DisplayName:          "Send Notification",
				Description:          "Drains the e-mail queue through SES and alerts the broker by SMS",
				Category:             "communication",
				Version:              catalogVersion,
				TaskType:             sn.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("leadId", "limit"),
				OutputSchema:         fields("sent", "failed", "disabled", "smsSent", "ids"),
				ErrorCodes:           []string{"NOTIFICATION_SEND_FAILED"},
				Timeout:              "30s",
				Retries:              3,
				Workflows:            []string{"lead-intake"},
				Tags:                 []string{"email", "sms"},
			},
			{
				ID:                   srl.TaskType,
				DisplayName:          "Search Leads",
				Description:          "Full-text lead search with board fallback",
				Category:             "data-access",
				Version:              catalogVersion,
				TaskType:             srl.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("query", "size"),
				OutputSchema:         fields("leads", "totalHits"),
				ErrorCodes:           []string{"SEARCH_QUERY_FAILED", "SEARCH_TIMEOUT"},
				Timeout:              "10s",
				Retries:              2,
				Workflows:            []string{},
				Tags:                 []string{"search"},
			},
			{
				ID:                   sl.TaskType,
				DisplayName:          "Sync CRM Leads",
				Description:          "Imports leads changed in Zoho CRM since a point in time",
				Category:             "crm",
				Version:              catalogVersion,
				TaskType:             sl.TaskType,
				ImplementationStatus: "completed",
				InputSchema:          fields("since"),
				OutputSchema:         fields("crmSyncSuccess", "crmMessage", "crmFetched", "crmCreated", "crmUpdated", "crmSkipped", "crmSyncedAt"),
				ErrorCodes:           []string{"CRM_SYNC_FAILED"},
				Timeout:              "2m",
				Retries:              3,
				Workflows:            []string{"crm-sync"},
				Tags:                 []string{"zoho"},
			},
		},
	}
}
