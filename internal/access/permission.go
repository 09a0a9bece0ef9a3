package access

import (
	"sort"
)

// Permission is an opaque capability identifier.
type Permission string

// Wildcard and baseline permissions.
const (
	PermAllAccess      Permission = "all_access"
	PermViewOwnProfile Permission = "view_own_profile"
	PermEditOwnProfile Permission = "edit_own_profile"
)

// Role-scoped permissions.
const (
	PermManageUsers       Permission = "manage_users"
	PermManageRoles       Permission = "manage_roles"
	PermManageDepartments Permission = "manage_departments"
	PermManageSettings    Permission = "manage_settings"
	PermViewAuditLog      Permission = "view_audit_log"
	PermViewEmployees     Permission = "view_employees"
	PermManageEmployees   Permission = "manage_employees"
	PermViewTeam          Permission = "view_team"
	PermManageTeam        Permission = "manage_team"
	PermViewReports       Permission = "view_reports"
	PermExportReports     Permission = "export_reports"
	PermViewAnalytics     Permission = "view_analytics"
	PermViewDashboard     Permission = "view_dashboard"
	PermViewRequests      Permission = "view_requests"
	PermCreateRequests    Permission = "create_requests"
	PermApproveRequests   Permission = "approve_requests"
	PermManageRequests    Permission = "manage_requests"
	PermViewAttendance    Permission = "view_attendance"
	PermViewOwnAttendance Permission = "view_own_attendance"
	PermManageAttendance  Permission = "manage_attendance"
	PermViewOwnDocuments  Permission = "view_own_documents"
	PermManageDocuments   Permission = "manage_documents"
	PermLearningAccess    Permission = "learning_access"
	PermManageLearning    Permission = "manage_learning"
)

// Department-scoped permissions.
const (
	PermViewSalesData       Permission = "view_sales_data"
	PermManageLeads         Permission = "manage_leads"
	PermManageDeals         Permission = "manage_deals"
	PermViewMarketingData   Permission = "view_marketing_data"
	PermManageCampaigns     Permission = "manage_campaigns"
	PermViewHRData          Permission = "view_hr_data"
	PermManageRecruitment   Permission = "manage_recruitment"
	PermManageOnboarding    Permission = "manage_onboarding"
	PermViewFinanceData     Permission = "view_finance_data"
	PermManageInvoices      Permission = "manage_invoices"
	PermManageExpenses      Permission = "manage_expenses"
	PermViewOperationsData  Permission = "view_operations_data"
	PermManageInventory     Permission = "manage_inventory"
	PermViewEngineeringData Permission = "view_engineering_data"
	PermManageDeployments   Permission = "manage_deployments"
	PermViewSupportData     Permission = "view_support_data"
	PermManageTickets       Permission = "manage_tickets"
	PermViewLegalData       Permission = "view_legal_data"
	PermManageContracts     Permission = "manage_contracts"
)

// BaselinePermissions are granted to every authenticated identity.
func BaselinePermissions() []Permission {
	return []Permission{PermViewOwnProfile, PermEditOwnProfile}
}

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	set.Add(perms...)
	return set
}

// Add inserts permissions into the set.
func (s PermissionSet) Add(perms ...Permission) {
	for _, p := range perms {
		s[p] = struct{}{}
	}
}

// Has reports membership. A nil set holds nothing.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Len returns the number of distinct permissions.
func (s PermissionSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both sets hold the same members.
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}
