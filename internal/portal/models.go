package portal

import (
	"time"

	"powerschoolBot/internal/cache"
)

// Collection names mirror the field names of the studentDataVOs payload.
// Schools are cached under their school number and final grades and
// assignment scores under the id of the record they grade, because that is
// how the rest of the payload refers to them.
const (
	colSchools              = "schools"
	colTeachers             = "teachers"
	colTerms                = "terms"
	colReportingTerms       = "reportingTerms"
	colAssignments          = "assignments"
	colAssignmentScores     = "assignmentScores"
	colAssignmentCategories = "assignmentCategories"
	colAttendanceCodes      = "attendanceCodes"
	colAttendance           = "attendance"
	colPeriods              = "periods"
	colCourses              = "sections"
	colFinalGrades          = "finalGrades"
	colNotInSessionDays     = "notInSessionDays"
)

// School is a building the student is enrolled at.
type School struct {
	store *cache.Cache

	ID           int64  `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	SchoolNumber int64  `mapstructure:"schoolNumber"`
	Address      string `mapstructure:"address"`
	Phone        string `mapstructure:"phone"`
	LowGrade     int64  `mapstructure:"lowGrade"`
	HighGrade    int64  `mapstructure:"highGrade"`
}

// Teacher is a staff member referenced by courses.
type Teacher struct {
	store *cache.Cache

	ID        int64  `mapstructure:"id"`
	FirstName string `mapstructure:"firstName"`
	LastName  string `mapstructure:"lastName"`
	Email     string `mapstructure:"email"`
}

// Term is a span of the school year (year, semester, quarter).
type Term struct {
	store *cache.Cache

	ID           int64     `mapstructure:"id"`
	Title        string    `mapstructure:"title"`
	Abbreviation string    `mapstructure:"abbreviation"`
	SchoolNumber int64     `mapstructure:"schoolNumber"`
	ParentTermID int64     `mapstructure:"parentTermId"`
	StartDate    time.Time `mapstructure:"startDate"`
	EndDate      time.Time `mapstructure:"endDate"`
}

// School returns the school this term belongs to, or nil when the payload
// did not include it.
func (t *Term) School() *School {
	school, _ := cache.One[*School](t.store, colSchools, t.SchoolNumber)
	return school
}

// ParentTerm returns the enclosing term (e.g. the semester a quarter sits
// in), or nil for top-level terms and dangling references.
func (t *Term) ParentTerm() *Term {
	parent, _ := cache.One[*Term](t.store, colTerms, t.ParentTermID)
	return parent
}

// ReportingTerm is a grading window inside a term.
type ReportingTerm struct {
	store *cache.Cache

	ID           int64     `mapstructure:"id"`
	TermID       int64     `mapstructure:"termId"`
	Title        string    `mapstructure:"title"`
	Abbreviation string    `mapstructure:"abbreviation"`
	StartDate    time.Time `mapstructure:"startDate"`
	EndDate      time.Time `mapstructure:"endDate"`
}

// Term returns the term this reporting term grades, or nil.
func (rt *ReportingTerm) Term() *Term {
	term, _ := cache.One[*Term](rt.store, colTerms, rt.TermID)
	return term
}

// Course is one section the student is scheduled into.
type Course struct {
	store *cache.Cache

	ID           int64  `mapstructure:"id"`
	Title        string `mapstructure:"schoolCourseTitle"`
	CourseCode   string `mapstructure:"courseCode"`
	SectionNum   string `mapstructure:"sectionNum"`
	TermID       int64  `mapstructure:"termId"`
	SchoolNumber int64  `mapstructure:"schoolNumber"`
	TeacherID    int64  `mapstructure:"teacherId"`
	PeriodID     int64  `mapstructure:"periodId"`
	Expression   string `mapstructure:"expression"`
	RoomName     string `mapstructure:"roomName"`
}

// Term returns the term the course runs in, or nil.
func (c *Course) Term() *Term {
	term, _ := cache.One[*Term](c.store, colTerms, c.TermID)
	return term
}

// School returns the school offering the course, or nil.
func (c *Course) School() *School {
	school, _ := cache.One[*School](c.store, colSchools, c.SchoolNumber)
	return school
}

// Teacher returns the teacher of record, or nil.
func (c *Course) Teacher() *Teacher {
	teacher, _ := cache.One[*Teacher](c.store, colTeachers, c.TeacherID)
	return teacher
}

// Period returns the period the course meets in, or nil.
func (c *Course) Period() *Period {
	period, _ := cache.One[*Period](c.store, colPeriods, c.PeriodID)
	return period
}

// Assignments returns every assignment attached to this course. The
// assignments collection is scanned on each call, so callers that need the
// result more than once should keep a copy.
func (c *Course) Assignments() []*Assignment {
	var matched []*Assignment
	for _, a := range cache.All[*Assignment](c.store, colAssignments) {
		if a.SectionID == c.ID {
			matched = append(matched, a)
		}
	}
	return matched
}

// FinalGrades returns every stored final grade for this course, one per
// reporting term, in payload order.
func (c *Course) FinalGrades() []*FinalGrade {
	return cache.Many[*FinalGrade](c.store, colFinalGrades, c.ID)
}

// FinalGrade returns the grade for the most recent reporting term, or nil
// when no grade has been stored yet.
func (c *Course) FinalGrade() *FinalGrade {
	var current *FinalGrade
	for _, g := range c.FinalGrades() {
		if current == nil {
			current = g
			continue
		}
		rt, crt := g.ReportingTerm(), current.ReportingTerm()
		if rt != nil && crt != nil && rt.StartDate.After(crt.StartDate) {
			current = g
		}
	}
	return current
}

// Assignment is one graded task inside a course.
type Assignment struct {
	store *cache.Cache

	ID             int64     `mapstructure:"id"`
	SectionID      int64     `mapstructure:"sectionId"`
	CategoryID     int64     `mapstructure:"categoryId"`
	Name           string    `mapstructure:"name"`
	Description    string    `mapstructure:"description"`
	DueDate        time.Time `mapstructure:"dueDate"`
	PointsPossible float64   `mapstructure:"pointsPossible"`
	Weight         float64   `mapstructure:"weight"`
}

// Course returns the course this assignment belongs to, or nil.
func (a *Assignment) Course() *Course {
	course, _ := cache.One[*Course](a.store, colCourses, a.SectionID)
	return course
}

// Category returns the category the assignment is graded under, or nil.
func (a *Assignment) Category() *AssignmentCategory {
	category, _ := cache.One[*AssignmentCategory](a.store, colAssignmentCategories, a.CategoryID)
	return category
}

// Score returns the student's score for this assignment, or nil when it has
// not been graded yet.
func (a *Assignment) Score() *AssignmentScore {
	score, _ := cache.One[*AssignmentScore](a.store, colAssignmentScores, a.ID)
	return score
}

// Scores returns every score row recorded against this assignment, in
// payload order.
func (a *Assignment) Scores() []*AssignmentScore {
	return cache.Many[*AssignmentScore](a.store, colAssignmentScores, a.ID)
}

// AssignmentScore is the student's result on one assignment.
type AssignmentScore struct {
	store *cache.Cache

	ID           int64   `mapstructure:"id"`
	AssignmentID int64   `mapstructure:"assignmentId"`
	Score        string  `mapstructure:"score"`
	LetterGrade  string  `mapstructure:"letterGrade"`
	Percent      float64 `mapstructure:"percent"`
	Collected    bool    `mapstructure:"collected"`
	Late         bool    `mapstructure:"late"`
	Missing      bool    `mapstructure:"missing"`
	Exempt       bool    `mapstructure:"exempt"`
	Comment      string  `mapstructure:"comment"`
}

// Assignment returns the assignment this score grades, or nil.
func (s *AssignmentScore) Assignment() *Assignment {
	assignment, _ := cache.One[*Assignment](s.store, colAssignments, s.AssignmentID)
	return assignment
}

// AssignmentCategory groups assignments for grading (homework, tests, ...).
// Assignments is filled in once per fetch, after both collections have been
// decoded; assignments pointing at a category the payload omitted are left
// out.
type AssignmentCategory struct {
	store *cache.Cache

	ID          int64  `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`

	Assignments []*Assignment `mapstructure:"-"`
}

// AttendanceCode is a school-defined attendance mark (present, tardy, ...).
type AttendanceCode struct {
	store *cache.Cache

	ID           int64  `mapstructure:"id"`
	Code         string `mapstructure:"code"`
	Description  string `mapstructure:"description"`
	SchoolNumber int64  `mapstructure:"schoolNumber"`
}

// AttendanceRecord is one attendance mark for the student.
type AttendanceRecord struct {
	store *cache.Cache

	ID               int64     `mapstructure:"id"`
	AttendanceCodeID int64     `mapstructure:"attCodeId"`
	PeriodID         int64     `mapstructure:"periodId"`
	SectionID        int64     `mapstructure:"sectionId"`
	SchoolNumber     int64     `mapstructure:"schoolNumber"`
	Date             time.Time `mapstructure:"date"`
	Comment          string    `mapstructure:"comment"`
}

// Code returns the attendance code for this record, or nil.
func (ar *AttendanceRecord) Code() *AttendanceCode {
	code, _ := cache.One[*AttendanceCode](ar.store, colAttendanceCodes, ar.AttendanceCodeID)
	return code
}

// Period returns the period the mark was taken in, or nil.
func (ar *AttendanceRecord) Period() *Period {
	period, _ := cache.One[*Period](ar.store, colPeriods, ar.PeriodID)
	return period
}

// Course returns the course the mark was taken in, or nil.
func (ar *AttendanceRecord) Course() *Course {
	course, _ := cache.One[*Course](ar.store, colCourses, ar.SectionID)
	return course
}

// Period is a slot in the bell schedule.
type Period struct {
	store *cache.Cache

	ID           int64  `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Number       int64  `mapstructure:"periodNumber"`
	SchoolNumber int64  `mapstructure:"schoolNumber"`
	SortOrder    int64  `mapstructure:"sortOrder"`
}

// FinalGrade is the stored grade for one course in one reporting term.
type FinalGrade struct {
	store *cache.Cache

	ID              int64     `mapstructure:"id"`
	SectionID       int64     `mapstructure:"sectionId"`
	ReportingTermID int64     `mapstructure:"reportingTermId"`
	Grade           string    `mapstructure:"grade"`
	Percent         float64   `mapstructure:"percent"`
	Comment         string    `mapstructure:"comment"`
	DateStored      time.Time `mapstructure:"dateStored"`
}

// Course returns the course this grade belongs to, or nil.
func (fg *FinalGrade) Course() *Course {
	course, _ := cache.One[*Course](fg.store, colCourses, fg.SectionID)
	return course
}

// ReportingTerm returns the reporting term the grade was stored for, or nil.
func (fg *FinalGrade) ReportingTerm() *ReportingTerm {
	rt, _ := cache.One[*ReportingTerm](fg.store, colReportingTerms, fg.ReportingTermID)
	return rt
}

// SchoolEvent is a day school is not in session (holiday, teacher day).
type SchoolEvent struct {
	store *cache.Cache

	ID           int64     `mapstructure:"id"`
	SchoolNumber int64     `mapstructure:"schoolNumber"`
	Date         time.Time `mapstructure:"date"`
	Description  string    `mapstructure:"description"`
}

// School returns the school the event belongs to, or nil.
func (e *SchoolEvent) School() *School {
	school, _ := cache.One[*School](e.store, colSchools, e.SchoolNumber)
	return school
}

// Student is the basic-information record of the signed-in student.
type Student struct {
	store *cache.Cache

	ID          int64     `mapstructure:"id"`
	FirstName   string    `mapstructure:"firstName"`
	MiddleName  string    `mapstructure:"middleName"`
	LastName    string    `mapstructure:"lastName"`
	DateOfBirth time.Time `mapstructure:"dob"`
	Ethnicity   string    `mapstructure:"ethnicity"`
	Gender      string    `mapstructure:"gender"`
	GradeLevel  int64     `mapstructure:"gradeLevel"`
	CurrentGPA  string    `mapstructure:"currentGPA"`
}

// StudentInfo is the snapshot one fetch produces. The slices are the decoded
// collections in payload order; the records inside them resolve their
// cross-references against the cache built for that fetch, so two snapshots
// never share state.
type StudentInfo struct {
	Student *Student
	YearID  int64

	Schools              []*School
	Teachers             []*Teacher
	Terms                []*Term
	ReportingTerms       []*ReportingTerm
	Courses              []*Course
	Assignments          []*Assignment
	AssignmentScores     []*AssignmentScore
	AssignmentCategories []*AssignmentCategory
	AttendanceCodes      []*AttendanceCode
	Attendance           []*AttendanceRecord
	Periods              []*Period
	FinalGrades          []*FinalGrade
	NotInSessionDays     []*SchoolEvent
}
