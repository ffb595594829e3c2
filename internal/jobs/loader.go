package jobs

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// csvAliases maps accepted CSV header names onto listing fields.
var csvAliases = map[string]string{
	"id":              "id",
	"job_id":          "id",
	"title":           "title",
	"job_title":       "title",
	"position":        "title",
	"company":         "company",
	"company_name":    "company",
	"location":        "location",
	"city":            "location",
	"employment_type": "employment_type",
	"type":            "employment_type",
	"job_type":        "employment_type",
	"salary_min":      "salary_min",
	"min_salary":      "salary_min",
	"salary_max":      "salary_max",
	"max_salary":      "salary_max",
	"currency":        "currency",
	"description":     "description",
	"job_description": "description",
	"skills":          "skills",
	"url":             "url",
	"link":            "url",
	"posted_at":       "posted_at",
	"date_posted":     "posted_at",
}

// LoadFile reads listings from a CSV, JSON or YAML file chosen by extension.
func LoadFile(path string) ([]Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening jobs file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("%w: unsupported jobs file extension %q", ErrInvalidInput, filepath.Ext(path))
	}
}

// LoadJSON accepts either an array of listings or {"jobs": [...]}.
func LoadJSON(r io.Reader) ([]Listing, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading jobs json: %w", err)
	}
	var list []Listing
	if err := json.Unmarshal(raw, &list); err == nil {
		return normalizeAll(list)
	}
	var wrapped struct {
		Jobs []Listing `json:"jobs"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing jobs json: %w", err)
	}
	return normalizeAll(wrapped.Jobs)
}

// LoadYAML accepts either a sequence of listings or a mapping with a jobs key.
func LoadYAML(r io.Reader) ([]Listing, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading jobs yaml: %w", err)
	}
	var list []Listing
	if err := yaml.Unmarshal(raw, &list); err == nil {
		return normalizeAll(list)
	}
	var wrapped struct {
		Jobs []Listing `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing jobs yaml: %w", err)
	}
	return normalizeAll(wrapped.Jobs)
}

// LoadCSV reads a header row followed by one listing per line.
func LoadCSV(r io.Reader) ([]Listing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	columns := make(map[int]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if field, ok := csvAliases[key]; ok {
			columns[i] = field
		}
	}
	if !hasField(columns, "title") {
		return nil, fmt.Errorf("%w: csv header has no title column", ErrInvalidInput)
	}

	var out []Listing
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		var l Listing
		for i, value := range record {
			field, ok := columns[i]
			if !ok {
				continue
			}
			if err := setField(&l, field, value); err != nil {
				return nil, fmt.Errorf("csv line %d: %w", line, err)
			}
		}
		if strings.TrimSpace(l.Title) == "" {
			continue
		}
		out = append(out, l)
	}
	return normalizeAll(out)
}

func setField(l *Listing, field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case "id":
		l.ID = value
	case "title":
		l.Title = value
	case "company":
		l.Company = value
	case "location":
		l.Location = value
	case "employment_type":
		l.EmploymentType = value
	case "currency":
		l.Currency = value
	case "description":
		l.Description = value
	case "url":
		l.URL = value
	case "skills":
		l.Skills = SplitSkills(value)
	case "salary_min", "salary_max":
		if value == "" {
			return nil
		}
		n, err := parseAmount(value)
		if err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidInput, field, value)
		}
		if field == "salary_min" {
			l.SalaryMin = &n
		} else {
			l.SalaryMax = &n
		}
	case "posted_at":
		if t, ok := ParseDate(value); ok {
			l.PostedAt = &t
		}
	}
	return nil
}

// parseAmount accepts plain integers and thousands separators ("15.000.000",
// "15,000,000").
func parseAmount(raw string) (int64, error) {
	clean := strings.NewReplacer(",", "", ".", "", " ", "", "_", "").Replace(raw)
	return strconv.ParseInt(clean, 10, 64)
}

// SplitSkills splits a comma or semicolon separated skills cell.
func SplitSkills(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' || r == '|' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseDate accepts RFC 3339 timestamps and plain dates.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05", "02/01/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func hasField(columns map[int]string, field string) bool {
	for _, f := range columns {
		if f == field {
			return true
		}
	}
	return false
}

func normalizeAll(list []Listing) ([]Listing, error) {
	for i := range list {
		if err := list[i].Normalize(); err != nil {
			return nil, fmt.Errorf("listing %d: %w", i+1, err)
		}
	}
	return list, nil
}
