package service

import (
	"strconv"

	"github.com/karsu-its/ijara-api/internal/models"
	"github.com/karsu-its/ijara-api/pkg/hemis"
)

// groupCode renders the numeric HEMIS group id as the stable code used
// across permissions, apartments and statistics.
func groupCode(g hemis.GroupInfo) string {
	if g.ID == 0 {
		return ""
	}
	return strconv.Itoa(g.ID)
}

// studentFromAccount maps a HEMIS profile onto a roster row. Self-service
// fields stay zero so upserts never clobber them.
func studentFromAccount(account hemis.Account) models.Student {
	return models.Student{
		StudentIDNumber: account.StudentIDNumber,
		FullName:        account.FullName,
		ShortName:       account.ShortName,
		FirstName:       account.FirstName,
		SecondName:      account.SecondName,
		ThirdName:       account.ThirdName,
		Gender:          account.Gender.Name,
		BirthDate:       account.BirthDate,
		Image:           account.Image,
		ProvinceName:    account.Province.Name,
		DistrictName:    account.District.Name,
		Accommodation:   account.Accommodation.Name,
		DepartmentCode:  account.Department.Code,
		DepartmentName:  account.Department.Name,
		SpecialtyName:   account.Specialty.Name,
		GroupCode:       groupCode(account.Group),
		GroupName:       account.Group.Name,
		EducationLang:   account.Group.EducationLang.Name,
		LevelName:       account.Level.Name,
		EducationForm:   account.EducationForm.Name,
		EducationType:   account.EducationType.Name,
		EducationYear:   account.EducationYear.Name,
		YearOfEnter:     account.YearOfEnter,
	}
}

// groupFromAccount derives the denormalized group row for the catalog.
func groupFromAccount(account hemis.Account) models.Group {
	return models.Group{
		Code:          groupCode(account.Group),
		Name:          account.Group.Name,
		EducationLang: account.Group.EducationLang.Name,
		FacultyName:   account.Department.Name,
		FacultyCode:   account.Department.Code,
	}
}
