package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

func createLoginRequest(ctx context.Context, baseURL, username, password string) (*http.Request, error) {
	data := url.Values{
		"account": {username},
		"pw":      {password},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+loginPath, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	return req, nil
}

type studentDataParams struct {
	UserID        int64   `json:"userId"`
	ServiceTicket string  `json:"serviceTicket"`
	StudentIDs    []int64 `json:"studentIDs"`
}

func createStudentDataRequest(ctx context.Context, baseURL string, session *Session) (*http.Request, error) {
	body, err := json.Marshal(studentDataParams{
		UserID:        session.UserID,
		ServiceTicket: session.ServiceTicket,
		StudentIDs:    session.StudentIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+studentDataPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	if session.cookie != nil {
		req.AddCookie(session.cookie)
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	return req, nil
}
