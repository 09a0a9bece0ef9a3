package access

// Department identifies an organisational unit.
type Department string

// Departments known to the catalog.
const (
	DeptSales           Department = "sales"
	DeptMarketing       Department = "marketing"
	DeptHR              Department = "hr"
	DeptFinance         Department = "finance"
	DeptOperations      Department = "operations"
	DeptEngineering     Department = "engineering"
	DeptCustomerSupport Department = "customer_support"
	DeptLegal           Department = "legal"
)

// NoDepartment marks an identity that belongs to no unit.
const NoDepartment Department = ""

// Departments lists the built-in departments.
func Departments() []Department {
	return []Department{
		DeptSales,
		DeptMarketing,
		DeptHR,
		DeptFinance,
		DeptOperations,
		DeptEngineering,
		DeptCustomerSupport,
		DeptLegal,
	}
}

func (d Department) String() string {
	return string(d)
}
