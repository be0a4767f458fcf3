package model

// Vehicle is a read-only view from the resource directory.
type Vehicle struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
	Terminal string `json:"terminal"`
	IsActive bool   `json:"is_active"`
}

// Driver is a read-only view from the resource directory.
type Driver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Terminal string `json:"terminal"`
	IsActive bool   `json:"is_active"`
}

// Route is a read-only view from the route directory.
type Route struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Terminal      string  `json:"terminal"`
	DurationHours float64 `json:"duration_hours"`
	Fare          int64   `json:"fare"`
	IsActive      bool    `json:"is_active"`
}

// Candidate is a vehicle ranked against a slot's capacity requirement.
// Score is capacity minus the required capacity; smaller is a tighter fit.
type Candidate struct {
	Vehicle Vehicle `json:"vehicle"`
	Score   int     `json:"score"`
}
