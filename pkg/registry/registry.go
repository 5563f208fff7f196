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
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Validate reports the first structural problem in the registry.
func (r *ActivityRegistry) Validate() error {
	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool)

	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity without id")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id %s", a.ID)
		}
		ids[a.ID] = true

		switch a.Kind {
		case KindServiceTask:
			if a.TaskType == "" {
				return fmt.Errorf("service task %s has no taskType", a.ID)
			}
			if taskTypes[a.TaskType] {
				return fmt.Errorf("duplicate taskType %s", a.TaskType)
			}
			taskTypes[a.TaskType] = true
			if a.Timeout != "" {
				if _, err := time.ParseDuration(a.Timeout); err != nil {
					return fmt.Errorf("service task %s has invalid timeout %q", a.ID, a.Timeout)
				}
			}
		case KindMessage:
			if a.MessageName == "" {
				return fmt.Errorf("message %s has no messageName", a.ID)
			}
		default:
			return fmt.Errorf("activity %s has unknown kind %q", a.ID, a.Kind)
		}
	}
	return nil
}

// ServiceTasks returns the activities served by job workers, in registry order.
func (r *ActivityRegistry) ServiceTasks() []Activity {
	var out []Activity
	for _, a := range r.Activities {
		if a.Kind == KindServiceTask {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the service task with taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.Kind == KindServiceTask && a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}
