package models

// Department is static reference data used to scope appointment queries.
type Department struct {
	Slug         string `db:"slug" json:"slug"`
	Name         string `db:"name" json:"name"`
	DisplayColor string `db:"display_color" json:"displayColor"`
	ImageRef     string `db:"image_ref" json:"image"`
}

// DefaultDepartments seeds the catalog when the departments table is empty.
var DefaultDepartments = []Department{
	{Slug: "computer-science-engineering", Name: "Computer Science Engineering", DisplayColor: "#06d6a0", ImageRef: "cse.png"},
	{Slug: "artificial-&-machine-learning", Name: "Artificial and Machine Learning", DisplayColor: "#f87060", ImageRef: "aiml.png"},
	{Slug: "data-science", Name: "Data Science", DisplayColor: "#102542", ImageRef: "ds.png"},
	{Slug: "cyber-security", Name: "Cyber Security", DisplayColor: "#f8ffe5", ImageRef: "cs.png"},
	{Slug: "information-technology", Name: "Information Technology", DisplayColor: "#2bc0e4", ImageRef: "it.png"},
	{Slug: "electronics-communication-engineering", Name: "Electronics Communication Engineering", DisplayColor: "#f8ffe5", ImageRef: "ece.png"},
}
