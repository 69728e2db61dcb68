package opds

import (
	"encoding/json"
	"fmt"
	"io"
)

// ProblemLoanAlreadyExists is the API problem type servers return when a
// loan request races an existing loan. It is not an error for the caller.
const ProblemLoanAlreadyExists = "http://librarysimplified.org/terms/problem/loan-already-exists"

// Problem is an RFC 7807 style API problem document.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status int    `json:"status,omitempty"`
}

// ParseProblem decodes an API problem document.
func ParseProblem(r io.Reader) (*Problem, error) {
	var p Problem
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse problem document: %w", err)
	}
	return &p, nil
}

// BearerToken is the token-indirection document some servers return instead
// of content: the consumer re-requests Location with the access token.
type BearerToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Location    string `json:"location"`
}

// ParseBearerToken decodes a bearer token document.
func ParseBearerToken(r io.Reader) (*BearerToken, error) {
	var t BearerToken
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse bearer token document: %w", err)
	}
	if t.AccessToken == "" || t.Location == "" {
		return nil, fmt.Errorf("bearer token document missing access_token or location")
	}
	return &t, nil
}
