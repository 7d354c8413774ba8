package portal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleData() *studentData {
	return &studentData{
		Schools: []*School{
			{ID: 1, Name: "Lakeside High", SchoolNumber: 405},
		},
		Teachers: []*Teacher{
			{ID: 7, FirstName: "Ada", LastName: "Byron"},
		},
		Terms: []*Term{
			{ID: 5, Title: "Q1", Abbreviation: "Q1", SchoolNumber: 405},
		},
		ReportingTerms: []*ReportingTerm{
			{ID: 50, TermID: 5, Title: "Quarter 1", StartDate: date(2025, 8, 18)},
			{ID: 51, TermID: 5, Title: "Quarter 2", StartDate: date(2025, 10, 20)},
		},
		Sections: []*Course{
			{ID: 10, Title: "Algebra 1", TermID: 5, SchoolNumber: 405, TeacherID: 7},
			{ID: 11, Title: "Biology", TermID: 5, SchoolNumber: 405, TeacherID: 7},
		},
		Assignments: []*Assignment{
			{ID: 1, SectionID: 10, CategoryID: 100, Name: "Worksheet 1"},
			{ID: 2, SectionID: 10, CategoryID: 100, Name: "Quiz 1"},
			{ID: 3, SectionID: 11, CategoryID: 999, Name: "Lab Report"},
		},
		AssignmentScores: []*AssignmentScore{
			{ID: 201, AssignmentID: 1, Percent: 90, LetterGrade: "A-"},
			{ID: 202, AssignmentID: 2, Percent: 80, LetterGrade: "B-"},
		},
		AssignmentCategories: []*AssignmentCategory{
			{ID: 100, Name: "Homework"},
			{ID: 101, Name: "Tests"},
		},
		FinalGrades: []*FinalGrade{
			{ID: 301, SectionID: 10, ReportingTermID: 50, Grade: "B+", Percent: 88.5},
			{ID: 302, SectionID: 10, ReportingTermID: 51, Grade: "A-", Percent: 91.2},
		},
		Student: &Student{ID: 42, FirstName: "Grace", LastName: "Hopper", GradeLevel: 10},
		YearID:  33,
	}
}

func TestCourseResolvesOwners(t *testing.T) {
	info := buildStudentInfo(sampleData())
	course := info.Courses[0]

	term := course.Term()
	require.NotNil(t, term)
	require.Equal(t, "Q1", term.Title)

	school := course.School()
	require.NotNil(t, school)
	require.Equal(t, "Lakeside High", school.Name)

	teacher := course.Teacher()
	require.NotNil(t, teacher)
	require.Equal(t, "Byron", teacher.LastName)
}

func TestCourseAssignmentsScan(t *testing.T) {
	info := buildStudentInfo(sampleData())

	assignments := info.Courses[0].Assignments()
	require.Len(t, assignments, 2)
	require.Equal(t, "Worksheet 1", assignments[0].Name)
	require.Equal(t, "Quiz 1", assignments[1].Name)

	require.Len(t, info.Courses[1].Assignments(), 1)
}

func TestAssignmentResolvesCourseAndScore(t *testing.T) {
	info := buildStudentInfo(sampleData())
	a := info.Assignments[0]

	course := a.Course()
	require.NotNil(t, course)
	require.Equal(t, int64(10), course.ID)

	score := a.Score()
	require.NotNil(t, score)
	require.Equal(t, "A-", score.LetterGrade)
	require.Same(t, a, score.Assignment())
}

func TestCategoryAggregationRunsOnce(t *testing.T) {
	data := sampleData()
	info := buildStudentInfo(data)

	homework := info.AssignmentCategories[0]
	require.Len(t, homework.Assignments, 2)
	require.Same(t, info.Assignments[0], homework.Assignments[0])
	require.Same(t, info.Assignments[1], homework.Assignments[1])

	// No assignment lands in a category it does not reference.
	require.Empty(t, info.AssignmentCategories[1].Assignments)
}

func TestAssignmentWithMissingCategoryIsDropped(t *testing.T) {
	info := buildStudentInfo(sampleData())

	// Assignment 3 references category 999, which the payload omitted. It
	// is left out of every category list and its own resolver reports nil.
	for _, category := range info.AssignmentCategories {
		for _, a := range category.Assignments {
			require.NotEqual(t, int64(3), a.ID)
		}
	}
	require.Nil(t, info.Assignments[2].Category())
}

func TestFinalGradesPerReportingTerm(t *testing.T) {
	info := buildStudentInfo(sampleData())
	course := info.Courses[0]

	grades := course.FinalGrades()
	require.Len(t, grades, 2)
	require.Equal(t, "B+", grades[0].Grade)
	require.Equal(t, "A-", grades[1].Grade)

	current := course.FinalGrade()
	require.NotNil(t, current)
	require.Equal(t, "A-", current.Grade)
	require.Equal(t, "Quarter 2", current.ReportingTerm().Title)

	// A course with no stored grades resolves to nil, not an error.
	require.Nil(t, info.Courses[1].FinalGrade())
	require.Empty(t, info.Courses[1].FinalGrades())
}

func TestDanglingReferencesResolveToNil(t *testing.T) {
	data := sampleData()
	data.Assignments = append(data.Assignments, &Assignment{ID: 4, SectionID: 9999})
	info := buildStudentInfo(data)

	orphan := info.Assignments[len(info.Assignments)-1]
	require.Nil(t, orphan.Course())
	require.Nil(t, orphan.Score())
	require.Empty(t, orphan.Scores())
}

func TestSnapshotsAreIndependent(t *testing.T) {
	first := buildStudentInfo(sampleData())

	second := sampleData()
	second.Terms[0].Title = "Semester 1"
	secondInfo := buildStudentInfo(second)

	// Each snapshot resolves against the cache of its own fetch.
	require.Equal(t, "Q1", first.Courses[0].Term().Title)
	require.Equal(t, "Semester 1", secondInfo.Courses[0].Term().Title)
}
