package access

// Catalog bundles the static tables the engine evaluates against.
type Catalog struct {
	RoleLevels            map[Role]int
	RolePermissions       map[Role][]Permission
	DepartmentPermissions map[Department][]Permission
	Features              map[Feature][]Permission
}

// DefaultCatalog returns a fresh copy of the built-in HRM catalog.
func DefaultCatalog() Catalog {
	levels := make(map[Role]int, len(Roles()))
	for i, role := range Roles() {
		levels[role] = i + 1
	}
	return Catalog{
		RoleLevels:            levels,
		RolePermissions:       defaultRolePermissions(),
		DepartmentPermissions: defaultDepartmentPermissions(),
		Features:              defaultFeatures(),
	}
}

// Permissions lists every permission referenced by the catalog, including the
// baseline set, in lexical order.
func (c Catalog) Permissions() []Permission {
	set := NewPermissionSet(BaselinePermissions()...)
	set.Add(PermAllAccess)
	for _, perms := range c.RolePermissions {
		set.Add(perms...)
	}
	for _, perms := range c.DepartmentPermissions {
		set.Add(perms...)
	}
	for _, perms := range c.Features {
		set.Add(perms...)
	}
	return set.Sorted()
}

func defaultRolePermissions() map[Role][]Permission {
	return map[Role][]Permission{
		RoleSuperAdmin:   {PermAllAccess},
		RoleProductOwner: {PermAllAccess},
		RoleAdmin: {
			PermManageUsers,
			PermManageRoles,
			PermManageDepartments,
			PermManageSettings,
			PermViewAuditLog,
			PermViewEmployees,
			PermManageEmployees,
			PermViewTeam,
			PermManageTeam,
			PermViewReports,
			PermExportReports,
			PermViewAnalytics,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermManageRequests,
			PermViewAttendance,
			PermManageAttendance,
			PermManageDocuments,
			PermLearningAccess,
			PermManageLearning,
		},
		RoleCXODirector: {
			PermViewAuditLog,
			PermViewEmployees,
			PermManageEmployees,
			PermViewTeam,
			PermManageTeam,
			PermViewReports,
			PermExportReports,
			PermViewAnalytics,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleSeniorManager: {
			PermViewEmployees,
			PermViewTeam,
			PermManageTeam,
			PermViewReports,
			PermExportReports,
			PermViewAnalytics,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleManager: {
			PermViewEmployees,
			PermViewTeam,
			PermManageTeam,
			PermViewReports,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleAssistantManager: {
			PermViewEmployees,
			PermViewTeam,
			PermViewReports,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleSeniorTeamLead: {
			PermViewTeam,
			PermViewReports,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleTeamLead: {
			PermViewTeam,
			PermViewDashboard,
			PermViewRequests,
			PermApproveRequests,
			PermViewAttendance,
			PermLearningAccess,
		},
		RoleAssistantTeamLead: {
			PermViewTeam,
			PermViewDashboard,
			PermViewRequests,
			PermCreateRequests,
			PermViewOwnAttendance,
			PermViewOwnDocuments,
			PermLearningAccess,
		},
		RoleSeniorAssociate: {
			PermViewDashboard,
			PermCreateRequests,
			PermViewOwnAttendance,
			PermViewOwnDocuments,
			PermLearningAccess,
		},
		RoleAssociate: {
			PermViewDashboard,
			PermCreateRequests,
			PermViewOwnAttendance,
			PermViewOwnDocuments,
			PermLearningAccess,
		},
		RoleIntern: {
			PermViewOwnAttendance,
			PermViewOwnDocuments,
			PermLearningAccess,
		},
		RoleViewer: {
			PermViewDashboard,
		},
	}
}

func defaultDepartmentPermissions() map[Department][]Permission {
	return map[Department][]Permission{
		DeptSales:           {PermViewSalesData, PermManageLeads, PermManageDeals},
		DeptMarketing:       {PermViewMarketingData, PermManageCampaigns},
		DeptHR:              {PermViewHRData, PermManageRecruitment, PermManageOnboarding},
		DeptFinance:         {PermViewFinanceData, PermManageInvoices, PermManageExpenses},
		DeptOperations:      {PermViewOperationsData, PermManageInventory},
		DeptEngineering:     {PermViewEngineeringData, PermManageDeployments},
		DeptCustomerSupport: {PermViewSupportData, PermManageTickets},
		DeptLegal:           {PermViewLegalData, PermManageContracts},
	}
}

func defaultFeatures() map[Feature][]Permission {
	return map[Feature][]Permission{
		FeatureDashboard:            {PermViewDashboard},
		FeatureProfile:              {PermViewOwnProfile},
		FeatureEmployeeList:         {PermViewEmployees, PermManageEmployees},
		FeatureUserManagement:       {PermManageUsers},
		FeatureRoleManagement:       {PermManageRoles},
		FeatureDepartmentManagement: {PermManageDepartments},
		FeatureReports:              {PermViewReports, PermExportReports},
		FeatureAnalytics:            {PermViewAnalytics},
		FeatureRequests:             {PermViewRequests, PermCreateRequests, PermApproveRequests, PermManageRequests},
		FeatureAttendance:           {PermViewAttendance, PermViewOwnAttendance, PermManageAttendance},
		FeatureDocuments:            {PermViewOwnDocuments, PermManageDocuments},
		FeatureLearning:             {PermLearningAccess, PermManageLearning},
		FeatureAuditLog:             {PermViewAuditLog},
		FeatureSettings:             {PermManageSettings},
		FeatureLeads:                {PermManageLeads, PermViewSalesData},
		FeatureCampaigns:            {PermManageCampaigns},
		FeatureRecruitment:          {PermManageRecruitment},
		FeatureFinance:              {PermViewFinanceData},
		FeatureTickets:              {PermManageTickets},
	}
}
