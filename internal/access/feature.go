package access

// Feature names a protected area of the product.
type Feature string

// Features guarded by the default catalog.
const (
	FeatureDashboard            Feature = "dashboard"
	FeatureProfile              Feature = "profile"
	FeatureEmployeeList         Feature = "employeeList"
	FeatureUserManagement       Feature = "userManagement"
	FeatureRoleManagement       Feature = "roleManagement"
	FeatureDepartmentManagement Feature = "departmentManagement"
	FeatureReports              Feature = "reports"
	FeatureAnalytics            Feature = "analytics"
	FeatureRequests             Feature = "requests"
	FeatureAttendance           Feature = "attendance"
	FeatureDocuments            Feature = "documents"
	FeatureLearning             Feature = "learning"
	FeatureAuditLog             Feature = "auditLog"
	FeatureSettings             Feature = "settings"
	FeatureLeads                Feature = "leads"
	FeatureCampaigns            Feature = "campaigns"
	FeatureRecruitment          Feature = "recruitment"
	FeatureFinance              Feature = "finance"
	FeatureTickets              Feature = "tickets"
)

func (f Feature) String() string {
	return string(f)
}
