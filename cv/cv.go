// Package cv holds the structured curriculum-vitae data handed to the generator.
package cv

// CV is the input of one generation call; it is never modified by the generator.
type CV struct {
	Personal       Personal        `json:"personalInfo"`
	Summary        string          `json:"summary,omitempty"`
	Skills         []SkillCategory `json:"skills,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Languages      []Language      `json:"languages,omitempty"`
}

// Personal carries the name, headline and contact fields.
type Personal struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

// Contacts returns the non-empty contact fields in display order.
func (p Personal) Contacts() []string {
	var out []string
	for _, v := range []string{p.Email, p.Phone, p.Location, p.Website, p.LinkedIn, p.GitHub} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SkillCategory groups skills under a category name.
type SkillCategory struct {
	Category string   `json:"category"`
	Items    []string `json:"items"`
}

// Experience is one position.
// Logo is either a locally hosted image path (e.g. "/logos/acme.png") or a glyph placeholder.
type Experience struct {
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Location     string   `json:"location,omitempty"`
	Period       string   `json:"period,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Logo         string   `json:"logo,omitempty"`
}

// Project is one portfolio project.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// Education is one degree or course.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Location    string `json:"location,omitempty"`
	Period      string `json:"period,omitempty"`
	Description string `json:"description,omitempty"`
}

// Certification is one certificate row.
type Certification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// Language is a language/proficiency pair.
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency"`
}

// Keywords flattens all skill items, for document metadata.
func (c *CV) Keywords() []string {
	var out []string
	for _, cat := range c.Skills {
		out = append(out, cat.Items...)
	}
	return out
}
