package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const testLoginBody = `{"userSessionVO": {"userId": 5, "serviceTicket": "ticket-1", "studentIDs": [42]}}`

// A realistic studentDataVOs response: wrapped under "return", the list
// collapsed around a single student, and the single school sent as a bare
// object instead of a list.
const testStudentDataBody = `{
	"return": {
		"studentDataVOs": [{
			"schools": {"id": 1, "name": "Lakeside High", "schoolNumber": 405},
			"teachers": [{"id": 7, "firstName": "Ada", "lastName": "Byron"}],
			"terms": [{"id": 5, "title": "Q1", "abbreviation": "Q1", "schoolNumber": 405}],
			"reportingTerms": [{"id": 50, "termId": 5, "title": "Quarter 1", "startDate": "2025-08-18"}],
			"sections": [{"id": 10, "schoolCourseTitle": "Algebra 1", "termId": 5, "schoolNumber": 405, "teacherId": 7}],
			"assignments": [
				{"id": 1, "sectionId": 10, "categoryId": 100, "name": "Worksheet 1"},
				{"id": 2, "sectionId": 10, "categoryId": 100, "name": "Quiz 1"}
			],
			"assignmentScores": [{"id": 201, "assignmentId": 1, "percent": "90.5", "letterGrade": "A-"}],
			"assignmentCategories": [{"id": 100, "name": "Homework"}],
			"finalGrades": [{"id": 301, "sectionId": 10, "reportingTermId": 50, "grade": "B+", "percent": 88.5}],
			"student": {"id": 42, "firstName": "Grace", "lastName": "Hopper", "gradeLevel": 10},
			"yearId": 33
		}]
	}
}`

// newTestServer serves the login and student data endpoints. The student
// data response body is read through the pointer so tests can swap it.
func newTestServer(t *testing.T, studentDataBody *atomic.Value) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		w.Header().Set("Content-Type", "application/json")
		if r.PostFormValue("account") == "grace" && r.PostFormValue("pw") == "hopper" {
			http.SetCookie(w, &http.Cookie{Name: authCookieName, Value: "abc123"})
			_, _ = w.Write([]byte(testLoginBody))
			return
		}
		_, _ = w.Write([]byte(`{"userSessionVO": null}`))
	})
	mux.HandleFunc(studentDataPath, func(w http.ResponseWriter, r *http.Request) {
		body := studentDataBody.Load().(string)
		if body == "" {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func studentDataVar(body string) *atomic.Value {
	v := new(atomic.Value)
	v.Store(body)
	return v
}

func TestLogin(t *testing.T) {
	server := newTestServer(t, studentDataVar(testStudentDataBody))
	service := NewService(server.URL)

	session, err := service.Login(context.Background(), "grace", "hopper")
	require.NoError(t, err)
	require.Equal(t, int64(5), session.UserID)
	require.Equal(t, "ticket-1", session.ServiceTicket)
	require.Equal(t, []int64{42}, session.StudentIDs)
	require.NotNil(t, session.cookie)
}

func TestLoginInvalidCredentials(t *testing.T) {
	server := newTestServer(t, studentDataVar(testStudentDataBody))
	service := NewService(server.URL)

	_, err := service.Login(context.Background(), "grace", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFetchStudentInfo(t *testing.T) {
	server := newTestServer(t, studentDataVar(testStudentDataBody))
	service := NewService(server.URL)

	session, err := service.Login(context.Background(), "grace", "hopper")
	require.NoError(t, err)

	info, err := service.FetchStudentInfo(context.Background(), session)
	require.NoError(t, err)

	require.Equal(t, int64(33), info.YearID)
	require.Equal(t, "Grace", info.Student.FirstName)

	// The bare-object school decoded into a one-element collection.
	require.Len(t, info.Schools, 1)
	require.Equal(t, "Lakeside High", info.Schools[0].Name)

	course := info.Courses[0]
	require.Equal(t, "Algebra 1", course.Title)
	require.Equal(t, "Q1", course.Term().Title)
	require.Equal(t, "Lakeside High", course.School().Name)
	require.Len(t, course.Assignments(), 2)

	require.Len(t, info.AssignmentCategories[0].Assignments, 2)

	score := info.Assignments[0].Score()
	require.NotNil(t, score)
	require.Equal(t, 90.5, score.Percent)

	grade := course.FinalGrade()
	require.NotNil(t, grade)
	require.Equal(t, "B+", grade.Grade)
	require.Equal(t, "Quarter 1", grade.ReportingTerm().Title)
}

func TestFetchStudentInfoMalformedPayload(t *testing.T) {
	server := newTestServer(t, studentDataVar(`{"return": {}}`))
	service := NewService(server.URL)

	session, err := service.Login(context.Background(), "grace", "hopper")
	require.NoError(t, err)

	_, err = service.FetchStudentInfo(context.Background(), session)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestFetchStudentInfoNilSession(t *testing.T) {
	service := NewService("http://localhost:1")

	_, err := service.FetchStudentInfo(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnexpectedNil)
}

func TestFailedFetchLeavesPreviousSnapshotIntact(t *testing.T) {
	body := studentDataVar(testStudentDataBody)
	server := newTestServer(t, body)
	service := NewService(server.URL)

	session, err := service.Login(context.Background(), "grace", "hopper")
	require.NoError(t, err)

	first, err := service.FetchStudentInfo(context.Background(), session)
	require.NoError(t, err)

	// The server starts failing; the fetch fails as a whole.
	body.Store("")
	_, err = service.FetchStudentInfo(context.Background(), session)
	require.Error(t, err)

	// The earlier snapshot still resolves everything.
	require.Equal(t, "Q1", first.Courses[0].Term().Title)
	require.Len(t, first.Courses[0].Assignments(), 2)
	require.Len(t, first.AssignmentCategories[0].Assignments, 2)
}

func TestRepeatedFetchesDoNotShareState(t *testing.T) {
	body := studentDataVar(testStudentDataBody)
	server := newTestServer(t, body)
	service := NewService(server.URL)

	session, err := service.Login(context.Background(), "grace", "hopper")
	require.NoError(t, err)

	first, err := service.FetchStudentInfo(context.Background(), session)
	require.NoError(t, err)

	// A later payload renames the term; only the new snapshot sees it.
	body.Store(`{"return": {"studentDataVOs": [{
		"terms": [{"id": 5, "title": "Semester 1"}],
		"sections": [{"id": 10, "schoolCourseTitle": "Algebra 1", "termId": 5}]
	}]}}`)

	second, err := service.FetchStudentInfo(context.Background(), session)
	require.NoError(t, err)

	require.Equal(t, "Semester 1", second.Courses[0].Term().Title)
	require.Equal(t, "Q1", first.Courses[0].Term().Title)
}
