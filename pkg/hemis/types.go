package hemis

// Named is the code/name pair HEMIS uses for most reference data.
type Named struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// GroupInfo describes the roster group a student belongs to.
type GroupInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	EducationLang Named  `json:"educationLang"`
}

// Account is the student profile HEMIS returns after login or inside a
// roster page. Field names follow the upstream JSON.
type Account struct {
	StudentIDNumber string    `json:"student_id_number"`
	FullName        string    `json:"full_name"`
	ShortName       string    `json:"short_name"`
	FirstName       string    `json:"first_name"`
	SecondName      string    `json:"second_name"`
	ThirdName       string    `json:"third_name"`
	BirthDate       int64     `json:"birth_date"`
	Image           string    `json:"image"`
	Gender          Named     `json:"gender"`
	Province        Named     `json:"province"`
	District        Named     `json:"district"`
	Accommodation   Named     `json:"accommodation"`
	Department      Named     `json:"department"`
	Specialty       Named     `json:"specialty"`
	Group           GroupInfo `json:"group"`
	Level           Named     `json:"level"`
	EducationForm   Named     `json:"educationForm"`
	EducationType   Named     `json:"educationType"`
	EducationYear   Named     `json:"educationYear"`
	YearOfEnter     int       `json:"year_of_enter"`
	Faculty         Named     `json:"faculty"`
}

// StudentList is one page of the roster.
type StudentList struct {
	Items      []Account `json:"items"`
	Pagination struct {
		TotalCount int `json:"totalCount"`
		PageCount  int `json:"pageCount"`
		Page       int `json:"page"`
		PerPage    int `json:"perPage"`
	} `json:"pagination"`
}

// University is the institution profile, carrying the faculty list.
type University struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Faculties []Named `json:"faculties"`
}
