package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Listing is one job posting in the jobs database.
type Listing struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	Company        string     `json:"company" yaml:"company"`
	Location       string     `json:"location" yaml:"location"`
	EmploymentType string     `json:"employmentType,omitempty" yaml:"employment_type"`
	SalaryMin      *int64     `json:"salaryMin,omitempty" yaml:"salary_min"`
	SalaryMax      *int64     `json:"salaryMax,omitempty" yaml:"salary_max"`
	Currency       string     `json:"currency,omitempty" yaml:"currency"`
	Description    string     `json:"description,omitempty" yaml:"description"`
	Skills         []string   `json:"skills,omitempty" yaml:"skills"`
	URL            string     `json:"url,omitempty" yaml:"url"`
	PostedAt       *time.Time `json:"postedAt,omitempty" yaml:"posted_at"`
}

// Filter narrows a listing query.
type Filter struct {
	Keyword  string
	Location string
	Limit    int
	Offset   int
}

// Normalize trims fields and assigns a stable ID derived from the posting's
// identity when none is set, so re-importing the same file updates rows.
func (l *Listing) Normalize() error {
	l.Title = strings.TrimSpace(l.Title)
	l.Company = strings.TrimSpace(l.Company)
	l.Location = strings.TrimSpace(l.Location)
	l.EmploymentType = strings.TrimSpace(l.EmploymentType)
	l.Currency = strings.ToUpper(strings.TrimSpace(l.Currency))
	l.Description = strings.TrimSpace(l.Description)
	l.URL = strings.TrimSpace(l.URL)
	skills := l.Skills[:0]
	for _, s := range l.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	l.Skills = skills

	if l.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if l.SalaryMin != nil && l.SalaryMax != nil && *l.SalaryMin > *l.SalaryMax {
		return fmt.Errorf("%w: salary_min exceeds salary_max for %q", ErrInvalidInput, l.Title)
	}
	l.ID = strings.TrimSpace(l.ID)
	if l.ID == "" {
		key := strings.ToLower(strings.Join([]string{l.Title, l.Company, l.Location, l.URL}, "|"))
		l.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
	}
	return nil
}

// Document renders the listing as the text indexed for semantic search.
func (l Listing) Document() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", l.Title)
	if l.Company != "" {
		fmt.Fprintf(&b, "Company: %s\n", l.Company)
	}
	if l.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", l.Location)
	}
	if l.EmploymentType != "" {
		fmt.Fprintf(&b, "Employment type: %s\n", l.EmploymentType)
	}
	if salary := l.SalaryRange(); salary != "" {
		fmt.Fprintf(&b, "Salary: %s\n", salary)
	}
	if len(l.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(l.Skills, ", "))
	}
	if l.Description != "" {
		b.WriteString("\n")
		b.WriteString(l.Description)
	}
	return strings.TrimSpace(b.String())
}

// SalaryRange formats the salary bounds, or returns "" when unknown.
func (l Listing) SalaryRange() string {
	cur := l.Currency
	if cur != "" {
		cur += " "
	}
	switch {
	case l.SalaryMin != nil && l.SalaryMax != nil:
		return fmt.Sprintf("%s%d - %d", cur, *l.SalaryMin, *l.SalaryMax)
	case l.SalaryMin != nil:
		return fmt.Sprintf("from %s%d", cur, *l.SalaryMin)
	case l.SalaryMax != nil:
		return fmt.Sprintf("up to %s%d", cur, *l.SalaryMax)
	}
	return ""
}

// Payload is the metadata stored alongside the listing's vector.
func (l Listing) Payload() map[string]any {
	p := map[string]any{
		"job_id":   l.ID,
		"title":    l.Title,
		"company":  l.Company,
		"location": l.Location,
		"text":     l.Document(),
	}
	if l.URL != "" {
		p["url"] = l.URL
	}
	return p
}
