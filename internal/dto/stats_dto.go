package dto

// FacultyFillRow reports submission coverage for one faculty. Percent is a
// preformatted one-decimal string because the clients render it verbatim.
type FacultyFillRow struct {
	FacultyName string `json:"faculty_name"`
	Students    int64  `json:"students"`
	Submitted   int64  `json:"submitted"`
	Percent     string `json:"percent"`
}

// GroupFillRow reports submission coverage for one group within a faculty.
type GroupFillRow struct {
	GroupCode string `json:"group_code"`
	GroupName string `json:"group_name"`
	Students  int64  `json:"students"`
	Submitted int64  `json:"submitted"`
	Percent   string `json:"percent"`
}

// StatusBreakdown counts submissions per compliance state.
type StatusBreakdown struct {
	BeingChecked int64 `json:"being_checked"`
	Green        int64 `json:"green"`
	Yellow       int64 `json:"yellow"`
	Red          int64 `json:"red"`
	Total        int64 `json:"total"`
}

// BucketRow is one titled count, used for boiler type and sub-district
// distributions.
type BucketRow struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// GenderCounts splits the submitting students by gender.
type GenderCounts struct {
	Male   int64 `json:"male"`
	Female int64 `json:"female"`
}

// MapPoint is one tenant apartment pin for the compliance map.
type MapPoint struct {
	ApartmentID uint    `json:"apartment_id"`
	StudentName string  `json:"student_name"`
	GroupName   string  `json:"group_name"`
	Status      string  `json:"status"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// DashboardSummary is the cached university-wide overview.
type DashboardSummary struct {
	Students     int64            `json:"students"`
	Submitted    int64            `json:"submitted"`
	Percent      string           `json:"percent"`
	Status       StatusBreakdown  `json:"status"`
	Gender       GenderCounts     `json:"gender"`
	Faculties    []FacultyFillRow `json:"faculties"`
	Boilers      []BucketRow      `json:"boilers"`
	SubDistricts []BucketRow      `json:"sub_districts"`
}
