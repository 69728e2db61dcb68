package drm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// AxisNowToken is the JSON fulfillment token AxisNow servers hand out.
type AxisNowToken struct {
	BookVaultUUID string `json:"book_vault_uuid"`
	ISBN          string `json:"isbn"`
}

// ParseAxisNowToken decodes and validates an AxisNow fulfillment token.
func ParseAxisNowToken(r io.Reader) (*AxisNowToken, error) {
	var t AxisNowToken
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse AxisNow token: %w", err)
	}
	if t.BookVaultUUID == "" || t.ISBN == "" {
		return nil, fmt.Errorf("AxisNow token missing book_vault_uuid or isbn")
	}
	return &t, nil
}

// AxisNowFulfillment is the result of a successful AxisNow fulfillment.
type AxisNowFulfillment struct {
	License []byte
	UserKey []byte
	Book    []byte
}

// AxisNowConnector performs AxisNow fulfillment against the vendor service.
type AxisNowConnector interface {
	Fulfill(ctx context.Context, token *AxisNowToken) (*AxisNowFulfillment, error)
}
