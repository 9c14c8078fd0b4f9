package models

import "fmt"

// Resource enumerates the RapidPro API resources the synchronizer knows.
type Resource int

const (
	Contacts Resource = iota
	Messages
	Runs
	Flows
	Definitions
)

var resourceNames = [...]string{
	Contacts:    "contacts",
	Messages:    "messages",
	Runs:        "runs",
	Flows:       "flows",
	Definitions: "definitions",
}

// String returns the API name of the resource, used in URLs and logs.
func (r Resource) String() string {
	if r < 0 || int(r) >= len(resourceNames) {
		return fmt.Sprintf("Resource(%d)", int(r))
	}
	return resourceNames[r]
}

// Valid reports whether r is one of the declared resources.
func (r Resource) Valid() bool {
	return r >= 0 && int(r) < len(resourceNames)
}
