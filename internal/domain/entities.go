package domain

import "time"

type Company struct {
	ID        int64
	Name      string
	Website   string
	Location  string
	Industry  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Job struct {
	ID             int64
	CompanyID      int64
	Title          string
	URL            string
	EmploymentType string
	SalaryRange    string
	Experience     string
	Description    string
	PostedDate     string // YYYY-MM-DD
	Deadline       string // YYYY-MM-DD or ""
	IsEstimated    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Tag struct {
	ID   int64
	Name string
}

type JobTag struct {
	JobID int64
	TagID int64
}
