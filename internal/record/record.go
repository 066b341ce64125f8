// Package record models the structured patent dataset produced by the
// extraction stage.
package record

import "time"

// Record is one extracted patent. Fields are fixed-shape and typed;
// values the database did not provide are empty strings, never absent
// keys. JSON field names match the downstream dataset contract.
type Record struct {
	PatentNo        string    `json:"patent_no"`
	PatentType      string    `json:"patent_type"`
	ApplicationDate string    `json:"application_date"` // YYYYMMDD
	ApplicationNo   string    `json:"application_number"`
	Inventors       string    `json:"inventors"`
	FirstApplicant  string    `json:"first_applicant"` // organizations only
	Abstract        string    `json:"abstract"`
	Examiner        string    `json:"examiner"`
	FirstClaim      string    `json:"first_claim"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Fields is the flat (CSV/XLSX) column order, mirroring the JSON form.
var Fields = []string{
	"patent_no",
	"patent_type",
	"application_date",
	"application_number",
	"inventors",
	"first_applicant",
	"abstract",
	"examiner",
	"first_claim",
	"fetched_at",
}

// Row renders the record in Fields order.
func (r Record) Row() []string {
	fetched := ""
	if !r.FetchedAt.IsZero() {
		fetched = r.FetchedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		r.PatentNo,
		r.PatentType,
		r.ApplicationDate,
		r.ApplicationNo,
		r.Inventors,
		r.FirstApplicant,
		r.Abstract,
		r.Examiner,
		r.FirstClaim,
		fetched,
	}
}
