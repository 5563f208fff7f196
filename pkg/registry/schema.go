// pkg/registry/schema.go
package registry

// Activity kinds.
const (
	KindServiceTask = "service-task"
	KindMessage     = "message"
)

// ActivityRegistry catalogues the workflow activities the portal takes part in.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity is a service task served by a worker or a message published by the portal.
type Activity struct {
	ID           string                 `json:"id"`
	DisplayName  string                 `json:"displayName"`
	Description  string                 `json:"description"`
	Kind         string                 `json:"kind"`
	TaskType     string                 `json:"taskType,omitempty"`
	MessageName  string                 `json:"messageName,omitempty"`
	InputSchema  map[string]interface{} `json:"inputSchema"`
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`
	ErrorCodes   []string               `json:"errorCodes"`
	Timeout      string                 `json:"timeout,omitempty"`
	Retries      int                    `json:"retries"`
	Workflows    []string               `json:"workflows"`
}
