package access

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role identifies an organisational rank.
type Role string

// Roles ordered from most to least authority.
const (
	RoleSuperAdmin        Role = "super_admin"
	RoleProductOwner      Role = "product_owner"
	RoleAdmin             Role = "admin"
	RoleCXODirector       Role = "cxo_director"
	RoleSeniorManager     Role = "senior_manager"
	RoleManager           Role = "manager"
	RoleAssistantManager  Role = "assistant_manager"
	RoleSeniorTeamLead    Role = "senior_team_lead"
	RoleTeamLead          Role = "team_lead"
	RoleAssistantTeamLead Role = "assistant_team_lead"
	RoleSeniorAssociate   Role = "senior_associate"
	RoleAssociate         Role = "associate"
	RoleIntern            Role = "intern"
	RoleViewer            Role = "viewer"
)

// Well-known levels referenced by guards.
const (
	LevelSuperAdmin   = 1
	LevelProductOwner = 2
	LevelAdmin        = 3
	LevelDirector     = 4
	LevelManager      = 6
	LevelViewer       = 14
	// LevelUnknown is returned for roles missing from the catalog. It ranks
	// below every defined role.
	LevelUnknown = LevelViewer + 1
)

// Roles lists the built-in roles ordered by level.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleProductOwner,
		RoleAdmin,
		RoleCXODirector,
		RoleSeniorManager,
		RoleManager,
		RoleAssistantManager,
		RoleSeniorTeamLead,
		RoleTeamLead,
		RoleAssistantTeamLead,
		RoleSeniorAssociate,
		RoleAssociate,
		RoleIntern,
		RoleViewer,
	}
}

// Label renders the role for display, e.g. "Senior Team Lead".
func (r Role) Label() string {
	if r == RoleCXODirector {
		return "CXO Director"
	}
	// Casers are stateful and must not be shared between goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(string(r), "_", " "))
}

func (r Role) String() string {
	return string(r)
}
