package portal

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// FormatStudentInfo renders a snapshot as the text report the bot sends:
// one block per course with the current grade and assignment counts, then
// an attendance summary.
func FormatStudentInfo(info *StudentInfo) (*string, error) {
	if info == nil {
		return nil, ErrUnexpectedNil
	}

	var builder strings.Builder

	if s := info.Student; s != nil {
		builder.WriteString(fmt.Sprintf("📋 %s %s", s.FirstName, s.LastName))
		if s.GradeLevel > 0 {
			builder.WriteString(fmt.Sprintf(" (grade %s)", cast.ToString(s.GradeLevel)))
		}
		if s.CurrentGPA != "" {
			builder.WriteString(fmt.Sprintf(", GPA %s", s.CurrentGPA))
		}
		builder.WriteString("\n\n")
	}

	if len(info.Courses) == 0 {
		msg := "No courses are scheduled for this student yet."
		return &msg, nil
	}

	for courseIndex, course := range info.Courses {
		builder.WriteString(fmt.Sprintf("%d) %s", courseIndex+1, course.Title))
		if teacher := course.Teacher(); teacher != nil {
			builder.WriteString(fmt.Sprintf(" with %s %s", teacher.FirstName, teacher.LastName))
		}
		if term := course.Term(); term != nil && term.Abbreviation != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", term.Abbreviation))
		}
		builder.WriteString("\n")

		if grade := course.FinalGrade(); grade != nil {
			builder.WriteString(fmt.Sprintf("    %s %.1f%%", grade.Grade, grade.Percent))
			if rt := grade.ReportingTerm(); rt != nil && rt.Title != "" {
				builder.WriteString(fmt.Sprintf(" in %s", rt.Title))
			}
			builder.WriteString("\n")
		}

		// Assignments() rescans per call, so walk the result once.
		if assignments := course.Assignments(); len(assignments) > 0 {
			missing := 0
			for _, a := range assignments {
				if score := a.Score(); score != nil && score.Missing {
					missing++
				}
			}
			builder.WriteString(fmt.Sprintf("    %d assignments", len(assignments)))
			if missing > 0 {
				builder.WriteString(fmt.Sprintf(", %d missing", missing))
			}
			builder.WriteString("\n")
		}
	}

	if len(info.Attendance) > 0 {
		counts := make(map[string]int)
		var order []string
		for _, mark := range info.Attendance {
			label := "Unknown"
			if code := mark.Code(); code != nil {
				label = code.Description
				if label == "" {
					label = code.Code
				}
			}
			if _, seen := counts[label]; !seen {
				order = append(order, label)
			}
			counts[label]++
		}

		parts := make([]string, 0, len(order))
		for _, label := range order {
			parts = append(parts, fmt.Sprintf("%s %d", label, counts[label]))
		}
		builder.WriteString(fmt.Sprintf("\nAttendance: %s\n", strings.Join(parts, ", ")))
	}

	resultString := builder.String()

	return &resultString, nil
}
