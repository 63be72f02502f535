package domain

// Category groups tickets by subject.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Priority is a ranked urgency; higher level means more urgent.
type Priority struct {
	ID          int64
	Name        string
	Level       int
	Description string
}

// Status is an entry of the open ticket status vocabulary.
type Status struct {
	ID          int64
	Name        string
	Description string
}

// ReferenceDefaults holds the vocabulary rows new tickets fall back to.
type ReferenceDefaults struct {
	Priority Priority
	Status   Status
}

// DefaultCategories, DefaultPriorities and DefaultStatuses seed an empty database.
var (
	DefaultCategories = []Category{
		{Name: "Technical"},
		{Name: "Billing"},
		{Name: "General"},
		{Name: "Account"},
	}
	DefaultPriorities = []Priority{
		{Name: "Low", Level: 1},
		{Name: "Medium", Level: 2},
		{Name: "High", Level: 3},
		{Name: "Urgent", Level: 4},
	}
	DefaultStatuses = []Status{
		{Name: "Open"},
		{Name: "In Progress"},
		{Name: "Waiting"},
		{Name: "Resolved"},
		{Name: "Closed"},
	}
)
