// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry stamps LastUpdated and writes reg as indented JSON.
func SaveRegistry(path string, reg *ActivityRegistry) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Validate rejects entries without an id or task type and duplicate task types.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]string, len(r.Activities))
	for i, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %d: id and taskType are required", i)
		}
		if _, err := time.ParseDuration(a.Timeout); a.Timeout != "" && err != nil {
			return fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
		}
		if other, dup := seen[a.TaskType]; dup {
			return fmt.Errorf("task type %s is bound to both %s and %s", a.TaskType, other, a.ID)
		}
		seen[a.TaskType] = a.ID
	}
	return nil
}

// Missing lists catalog task types that reg does not declare.
func (r *ActivityRegistry) Missing() []string {
	var out []string
	for _, a := range Catalog().Activities {
		if _, ok := r.Find(a.TaskType); !ok {
			out = append(out, a.TaskType)
		}
	}
	return out
}
