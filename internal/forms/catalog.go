package forms

func bound(f float64) *float64 { return &f }

// Catalog returns the built-in templates, freshly allocated on every call
func Catalog() []Template {
	return []Template{
		{
			ID:          "corporate-meeting",
			Name:        "Corporate Meeting",
			Description: "Internal meetings, trainings and all-hands sessions.",
			Category:    CategoryCorporate,
			Fields: append(DefaultFields(),
				FieldDefinition{ID: "employee_id", Type: TypeText, Label: "Employee ID", Required: true,
					Validation: Rules{Pattern: `^[A-Za-z0-9-]{3,20}$`, Message: "Employee ID must be 3-20 letters, digits or dashes"}},
				FieldDefinition{ID: "department", Type: TypeSelect, Label: "Department", Required: true,
					Options: []Option{
						{Label: "Engineering", Value: "engineering"},
						{Label: "Sales", Value: "sales"},
						{Label: "Marketing", Value: "marketing"},
						{Label: "Operations", Value: "operations"},
						{Label: "Human Resources", Value: "hr"},
					}},
				FieldDefinition{ID: "phone", Type: TypeTel, Label: "Phone Number"},
			),
			Features: []Feature{
				{Type: FeatureAttendance, Enabled: true},
			},
			MaxAttendees:  200,
			DurationHours: 2,
			System:        true,
		},
		{
			ID:          "academic-workshop",
			Name:        "Academic Workshop",
			Description: "Classes and workshops with graded assignments.",
			Category:    CategoryAcademic,
			Fields: append(DefaultFields(),
				FieldDefinition{ID: "student_id", Type: TypeText, Label: "Student ID", Required: true},
				FieldDefinition{ID: "course", Type: TypeText, Label: "Course", Step: 1},
				FieldDefinition{ID: "grade", Type: TypeGrade, Label: "Grade", Step: 1,
					HelperText: "Score between 0 and 100",
					Validation: Rules{Min: bound(0), Max: bound(100)}},
				FieldDefinition{ID: "assignment", Type: TypeFile, Label: "Assignment Upload", Step: 1,
					Validation: Rules{AcceptedTypes: []string{".pdf", ".docx", ".pptx"}, MaxSizeMB: 10}},
				FieldDefinition{ID: "submitted_on", Type: TypeDate, Label: "Submission Date", Step: 1},
			),
			Features: []Feature{
				{Type: FeatureAttendance, Enabled: true},
				{Type: FeatureFileUpload, Enabled: true},
				{Type: FeatureGradeTracking, Enabled: true},
				{Type: FeatureSubmissions, Enabled: true},
			},
			MaxAttendees:  60,
			DurationHours: 3,
			System:        true,
		},
		{
			ID:          "networking-mixer",
			Name:        "Networking Mixer",
			Description: "Meetups and mixers where attendees share contact details.",
			Category:    CategoryNetworking,
			Fields: append(DefaultFields(),
				FieldDefinition{ID: "company", Type: TypeText, Label: "Company"},
				FieldDefinition{ID: "job_title", Type: TypeText, Label: "Job Title"},
				FieldDefinition{ID: "linkedin", Type: TypeURL, Label: "LinkedIn Profile", Placeholder: "https://linkedin.com/in/..."},
				FieldDefinition{ID: "interests", Type: TypeSelect, Label: "Primary Interest",
					Options: []Option{
						{Label: "Hiring", Value: "hiring"},
						{Label: "Job Seeking", Value: "job_seeking"},
						{Label: "Partnerships", Value: "partnerships"},
						{Label: "Learning", Value: "learning"},
					}},
				FieldDefinition{ID: "bio", Type: TypeTextarea, Label: "Short Bio"},
			),
			Features: []Feature{
				{Type: FeatureAttendance, Enabled: true},
			},
			MaxAttendees:  150,
			DurationHours: 2.5,
			System:        true,
		},
	}
}

// CatalogTemplate returns the built-in template with the given id
func CatalogTemplate(id string) (Template, bool) {
	for _, t := range Catalog() {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}
