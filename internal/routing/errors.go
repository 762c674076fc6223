package routing

import (
	"fmt"

	"github.com/upb/campusiq-portal/models"
)

// RouteConfigurationError reports a defect in the route table.
// Role is empty when the defect is not tied to a role.
type RouteConfigurationError struct {
	Role   models.Role
	Path   string
	Reason string
}

func (e *RouteConfigurationError) Error() string {
	switch {
	case e.Role != "" && e.Path != "":
		return fmt.Sprintf("route configuration: role %s, path %s: %s", e.Role, e.Path, e.Reason)
	case e.Role != "":
		return fmt.Sprintf("route configuration: role %s: %s", e.Role, e.Reason)
	case e.Path != "":
		return fmt.Sprintf("route configuration: path %s: %s", e.Path, e.Reason)
	default:
		return "route configuration: " + e.Reason
	}
}
