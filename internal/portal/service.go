package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"powerschoolBot/internal/cache"
)

const (
	authCookieName  = "JSESSIONID"
	loginPath       = "/pearson-rest/services/PublicPortalServiceJSON/login"
	studentDataPath = "/pearson-rest/services/PublicPortalServiceJSON/getStudentData"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnexpectedNil      = errors.New("unexpected nil value")
	ErrMalformedPayload   = errors.New("malformed student data payload")
)

// Session is an authenticated portal session for one guardian account.
type Session struct {
	UserID        int64
	ServiceTicket string
	StudentIDs    []int64

	cookie *http.Cookie
}

// Service talks to one PowerSchool-style server.
type Service struct {
	baseURL    string
	httpClient *http.Client

	fetches singleflight.Group
}

// NewService returns a Service for the server at baseURL
// (e.g. "https://district.powerschool.com").
func NewService(baseURL string) *Service {
	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type sessionVO struct {
	UserID        int64   `mapstructure:"userId"`
	ServiceTicket string  `mapstructure:"serviceTicket"`
	StudentIDs    []int64 `mapstructure:"studentIDs"`
}

// Login authenticates against the portal and returns the session the other
// calls need. Bad credentials surface as ErrInvalidCredentials.
func (p *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	req, err := createLoginRequest(ctx, p.baseURL, username, password)
	if err != nil {
		return nil, fmt.Errorf("error creating login request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending login request: %w", err)
	}
	defer func(resp *http.Response) {
		_ = resp.Body.Close()
	}(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading login response: %w", err)
	}

	vo, err := decodeSession(body)
	if err != nil {
		return nil, err
	}
	if vo.ServiceTicket == "" {
		return nil, ErrInvalidCredentials
	}

	session := &Session{
		UserID:        vo.UserID,
		ServiceTicket: vo.ServiceTicket,
		StudentIDs:    vo.StudentIDs,
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == authCookieName && cookie.Value != "" {
			session.cookie = cookie
			break
		}
	}

	return session, nil
}

// FetchStudentInfo requests the full student data payload and rebuilds the
// snapshot from it. The result is complete or the call fails; a snapshot
// returned by an earlier call is never touched. Concurrent calls for the
// same session are collapsed into a single request sharing one snapshot.
func (p *Service) FetchStudentInfo(ctx context.Context, session *Session) (*StudentInfo, error) {
	if session == nil {
		return nil, ErrUnexpectedNil
	}

	v, err, _ := p.fetches.Do(strconv.FormatInt(session.UserID, 10), func() (any, error) {
		return p.fetchStudentInfo(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	return v.(*StudentInfo), nil
}

func (p *Service) fetchStudentInfo(ctx context.Context, session *Session) (*StudentInfo, error) {
	req, err := createStudentDataRequest(ctx, p.baseURL, session)
	if err != nil {
		return nil, fmt.Errorf("error creating student data request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending student data request: %w", err)
	}
	defer func(resp *http.Response) {
		_ = resp.Body.Close()
	}(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("student data request failed: %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading student data response: %w", err)
	}

	raw, err := extractStudentData(body)
	if err != nil {
		return nil, err
	}

	data, err := decodeStudentData(raw)
	if err != nil {
		return nil, err
	}

	return buildStudentInfo(data), nil
}

// buildStudentInfo wires every decoded record to a cache built for this
// fetch, indexes the collections under the key the payload refers to them
// by, and aggregates the per-category assignment lists.
func buildStudentInfo(data *studentData) *StudentInfo {
	store := cache.New()

	for _, s := range data.Schools {
		s.store = store
	}
	for _, t := range data.Teachers {
		t.store = store
	}
	for _, t := range data.Terms {
		t.store = store
	}
	for _, rt := range data.ReportingTerms {
		rt.store = store
	}
	for _, a := range data.Assignments {
		a.store = store
	}
	for _, s := range data.AssignmentScores {
		s.store = store
	}
	for _, c := range data.AssignmentCategories {
		c.store = store
	}
	for _, ac := range data.AttendanceCodes {
		ac.store = store
	}
	for _, ar := range data.Attendance {
		ar.store = store
	}
	for _, p := range data.Periods {
		p.store = store
	}
	for _, c := range data.Sections {
		c.store = store
	}
	for _, fg := range data.FinalGrades {
		fg.store = store
	}
	for _, e := range data.NotInSessionDays {
		e.store = store
	}
	if data.Student != nil {
		data.Student.store = store
	}

	cache.Store(store, colSchools, data.Schools, func(s *School) int64 { return s.SchoolNumber })
	cache.Store(store, colTeachers, data.Teachers, func(t *Teacher) int64 { return t.ID })
	cache.Store(store, colTerms, data.Terms, func(t *Term) int64 { return t.ID })
	cache.Store(store, colReportingTerms, data.ReportingTerms, func(rt *ReportingTerm) int64 { return rt.ID })
	cache.Store(store, colAssignments, data.Assignments, func(a *Assignment) int64 { return a.ID })
	cache.Store(store, colAssignmentScores, data.AssignmentScores, func(s *AssignmentScore) int64 { return s.AssignmentID })
	cache.Store(store, colAssignmentCategories, data.AssignmentCategories, func(c *AssignmentCategory) int64 { return c.ID })
	cache.Store(store, colAttendanceCodes, data.AttendanceCodes, func(ac *AttendanceCode) int64 { return ac.ID })
	cache.Store(store, colAttendance, data.Attendance, func(ar *AttendanceRecord) int64 { return ar.ID })
	cache.Store(store, colPeriods, data.Periods, func(p *Period) int64 { return p.ID })
	cache.Store(store, colCourses, data.Sections, func(c *Course) int64 { return c.ID })
	cache.Store(store, colFinalGrades, data.FinalGrades, func(fg *FinalGrade) int64 { return fg.SectionID })
	cache.Store(store, colNotInSessionDays, data.NotInSessionDays, func(e *SchoolEvent) int64 { return e.ID })

	linkCategories(store, data.Assignments)

	return &StudentInfo{
		Student:              data.Student,
		YearID:               data.YearID,
		Schools:              data.Schools,
		Teachers:             data.Teachers,
		Terms:                data.Terms,
		ReportingTerms:       data.ReportingTerms,
		Courses:              data.Sections,
		Assignments:          data.Assignments,
		AssignmentScores:     data.AssignmentScores,
		AssignmentCategories: data.AssignmentCategories,
		AttendanceCodes:      data.AttendanceCodes,
		Attendance:           data.Attendance,
		Periods:              data.Periods,
		FinalGrades:          data.FinalGrades,
		NotInSessionDays:     data.NotInSessionDays,
	}
}

// linkCategories appends each assignment to its category's list, once per
// fetch. Assignments whose category is missing from the payload are skipped.
func linkCategories(store *cache.Cache, assignments []*Assignment) {
	for _, a := range assignments {
		if category, ok := cache.One[*AssignmentCategory](store, colAssignmentCategories, a.CategoryID); ok {
			category.Assignments = append(category.Assignments, a)
		}
	}
}
