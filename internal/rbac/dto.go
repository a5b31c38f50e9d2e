package rbac

// PermissionDescriptor is the wire shape of one catalog entry. Upstream
// endpoints are not perfectly uniform: some populate name, some only
// permissionKey, some only action, so consumers must resolve the display
// name defensively (see DisplayName).
type PermissionDescriptor struct {
	Name            string   `json:"name,omitempty"`
	PermissionKey   string   `json:"permissionKey"`
	Description     string   `json:"description,omitempty"`
	Resource        string   `json:"resource,omitempty"`
	Action          string   `json:"action,omitempty"`
	FilterType      *string  `json:"filterType"`
	IsAssigned      bool     `json:"isAssigned"`
	CanAssignToRole bool     `json:"canAssignToRole"`
	IsRestricted    bool     `json:"isRestricted"`
	AllowedRoles    []string `json:"allowedRoles,omitempty"`
}

// CatalogResponse maps resource names to their permission descriptors.
type CatalogResponse map[string][]PermissionDescriptor

func toDescriptor(p Permission) PermissionDescriptor {
	var filter *string
	if p.FilterType != "" {
		f := p.FilterType
		filter = &f
	}
	return PermissionDescriptor{
		PermissionKey:   p.Key,
		Description:     p.Description,
		Resource:        p.Resource,
		Action:          p.Action,
		FilterType:      filter,
		IsAssigned:      p.IsAssigned,
		CanAssignToRole: p.CanAssignToRole,
		IsRestricted:    p.IsRestricted,
		AllowedRoles:    p.AllowedRoles,
	}
}

// ToResponse converts a catalog into its wire representation.
func (c PermissionCatalog) ToResponse() CatalogResponse {
	resp := make(CatalogResponse, len(c))
	for resource, perms := range c {
		out := make([]PermissionDescriptor, len(perms))
		for i, p := range perms {
			out[i] = toDescriptor(p)
		}
		resp[resource] = out
	}
	return resp
}
