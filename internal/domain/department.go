package domain

// Department is one routing target for classified grievances. The taxonomy
// is static: it feeds the classifier prompt and the scorecard partitioning.
type Department struct {
	ID   string
	Name string
}

// Departments is the campus routing taxonomy.
var Departments = []Department{
	{ID: "hostel", Name: "Hostel Administration"},
	{ID: "academics", Name: "Academic Affairs"},
	{ID: "transport", Name: "Transport Services"},
	{ID: "it", Name: "IT Support"},
	{ID: "admin", Name: "General Administration"},
	{ID: "security", Name: "Campus Security"},
}

// DepartmentName resolves a department ID to its display name, returning
// the ID unchanged when it is not part of the taxonomy.
func DepartmentName(id string) string {
	for _, d := range Departments {
		if d.ID == id {
			return d.Name
		}
	}
	return id
}
