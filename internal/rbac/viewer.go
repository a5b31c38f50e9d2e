package rbac

import (
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// AssignedPermission is one entry in the read-only permissions view.
type AssignedPermission struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	FilterType  string `json:"filterType,omitempty"`
}

// ResourceGroup holds the assigned permissions of one resource plus its
// assigned/total badge counts.
type ResourceGroup struct {
	Resource      string               `json:"resource"`
	Label         string               `json:"label"`
	AssignedCount int                  `json:"assignedCount"`
	TotalCount    int                  `json:"totalCount"`
	Permissions   []AssignedPermission `json:"permissions"`
}

// RoleView is the read-only summary of a role's currently assigned
// permissions, grouped by resource.
type RoleView struct {
	RoleName      string          `json:"roleName"`
	TotalAssigned int             `json:"totalAssigned"`
	GroupCount    int             `json:"groupCount"`
	Groups        []ResourceGroup `json:"groups"`
}

// DisplayName resolves a descriptor's display name from the possible field
// names in order: name, permissionKey, action. When none is populated it
// returns a positional placeholder and reports that the fallback path was
// taken so callers can log the malformed record instead of masking it.
func (d PermissionDescriptor) DisplayName(position int) (string, bool) {
	switch {
	case d.Name != "":
		return d.Name, false
	case d.PermissionKey != "":
		return d.PermissionKey, false
	case d.Action != "":
		return d.Action, false
	default:
		return fmt.Sprintf("permission-%d", position+1), true
	}
}

// BuildRoleView renders the assigned-only view of a role's catalog. Entries
// with IsAssigned false are dropped; each resource group carries an
// assigned/total badge and the view carries aggregate counts. Records whose
// display name could not be resolved are logged and rendered with a
// placeholder, never dropped and never a crash.
func BuildRoleView(logger *slog.Logger, roleName string, catalog CatalogResponse) RoleView {
	if logger == nil {
		logger = slog.Default()
	}
	view := RoleView{RoleName: roleName}

	resources := make([]string, 0, len(catalog))
	for resource := range catalog {
		resources = append(resources, resource)
	}
	sort.Strings(resources)

	for _, resource := range resources {
		descriptors := catalog[resource]
		group := ResourceGroup{
			Resource:   resource,
			Label:      titler.String(resource),
			TotalCount: len(descriptors),
		}
		for i, d := range descriptors {
			if !d.IsAssigned {
				continue
			}
			name, fellBack := d.DisplayName(i)
			if fellBack {
				logger.Warn("permission descriptor missing display fields",
					slog.String("resource", resource),
					slog.Int("position", i))
			}
			entry := AssignedPermission{
				Key:         d.PermissionKey,
				DisplayName: name,
				Description: d.Description,
			}
			if d.FilterType != nil {
				entry.FilterType = *d.FilterType
			}
			group.Permissions = append(group.Permissions, entry)
		}
		group.AssignedCount = len(group.Permissions)
		if group.AssignedCount == 0 {
			continue
		}
		view.Groups = append(view.Groups, group)
		view.TotalAssigned += group.AssignedCount
	}
	view.GroupCount = len(view.Groups)
	return view
}
