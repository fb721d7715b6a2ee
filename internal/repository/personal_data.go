package repository

import "tumapply/internal/domain"

// personalColumns lists the snapshot columns shared by applicant_profiles and applications.
var personalColumns = []string{
	"first_name", "last_name", "gender", "nationality", "birthday",
	"phone_number", "website", "linkedin_url",
	"street", "postal_code", "city", "country",
	"bachelor_degree_name", "bachelor_grade_upper_limit", "bachelor_grade_lower_limit", "bachelor_grade", "bachelor_university",
	"master_degree_name", "master_grade_upper_limit", "master_grade_lower_limit", "master_grade", "master_university",
}

func personalValues(p domain.PersonalData) map[string]interface{} {
	return map[string]interface{}{
		"first_name":                 p.FirstName,
		"last_name":                  p.LastName,
		"gender":                     p.Gender,
		"nationality":                p.Nationality,
		"birthday":                   p.Birthday,
		"phone_number":               p.PhoneNumber,
		"website":                    p.Website,
		"linkedin_url":               p.LinkedinURL,
		"street":                     p.Street,
		"postal_code":                p.PostalCode,
		"city":                       p.City,
		"country":                    p.Country,
		"bachelor_degree_name":       p.BachelorDegreeName,
		"bachelor_grade_upper_limit": p.BachelorGradeUpperLimit,
		"bachelor_grade_lower_limit": p.BachelorGradeLowerLimit,
		"bachelor_grade":             p.BachelorGrade,
		"bachelor_university":        p.BachelorUniversity,
		"master_degree_name":         p.MasterDegreeName,
		"master_grade_upper_limit":   p.MasterGradeUpperLimit,
		"master_grade_lower_limit":   p.MasterGradeLowerLimit,
		"master_grade":               p.MasterGrade,
		"master_university":          p.MasterUniversity,
	}
}

func withColumns(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
