package jobs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCSV(t *testing.T) {
	in := "Job Title,Company,Location,Min Salary,Max Salary,Skills,Date Posted\n" +
		"Data Analyst,Tokopedia,Jakarta,\"8.000.000\",12000000,\"SQL; Python\",2024-05-01\n" +
		",Empty,Nowhere,,,,\n" +
		"Backend Engineer,Gojek,Bandung,,,Go,\n"

	got, err := LoadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(got))
	}
	first := got[0]
	if first.Title != "Data Analyst" || first.SalaryMin == nil || *first.SalaryMin != 8000000 {
		t.Fatalf("unexpected first listing: %+v", first)
	}
	if len(first.Skills) != 2 || first.Skills[0] != "SQL" {
		t.Fatalf("unexpected skills: %v", first.Skills)
	}
	if first.PostedAt == nil || first.PostedAt.Format("2006-01-02") != "2024-05-01" {
		t.Fatalf("unexpected posted date: %v", first.PostedAt)
	}
	if first.ID == "" || first.ID == got[1].ID {
		t.Fatalf("expected distinct generated ids, got %q and %q", first.ID, got[1].ID)
	}
}

func TestLoadCSVRequiresTitleColumn(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("company,location\nA,B\n"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoadJSONAndYAMLShapes(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "json array", file: "jobs.json", body: `[{"title":"QA Engineer","company":"Acme","skills":["Selenium"]}]`},
		{name: "json wrapped", file: "jobs.json", body: `{"jobs":[{"title":"QA Engineer","company":"Acme"}]}`},
		{name: "yaml sequence", file: "jobs.yaml", body: "- title: QA Engineer\n  company: Acme\n  salary_min: 5000000\n"},
		{name: "yaml wrapped", file: "jobs.yml", body: "jobs:\n  - title: QA Engineer\n    company: Acme\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			if err := os.WriteFile(path, []byte(tc.body), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if len(got) != 1 || got[0].Title != "QA Engineer" || got[0].Company != "Acme" {
				t.Fatalf("unexpected listings: %+v", got)
			}
			if got[0].ID == "" {
				t.Fatalf("expected generated id")
			}
		})
	}
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.xml")
	if err := os.WriteFile(path, []byte("<jobs/>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListingDocument(t *testing.T) {
	l := Listing{Title: "Data Engineer", Company: "Traveloka", SalaryMin: int64p(10), SalaryMax: int64p(20), Currency: "IDR", Skills: []string{"Spark", "Airflow"}, Description: "Build pipelines."}
	doc := l.Document()
	for _, want := range []string{"Title: Data Engineer", "Company: Traveloka", "Salary: IDR 10 - 20", "Skills: Spark, Airflow", "Build pipelines."} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document missing %q:\n%s", want, doc)
		}
	}
	if l.Payload()["text"] != doc {
		t.Fatalf("payload text should equal document")
	}
}
