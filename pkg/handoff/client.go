// Package handoff is the client SDK for the hand-off verification
// authority. It carries the four client-side pieces of the protocol: the
// REST client, the durable passcode store, the order notification poller and
// the rating collector, plus the device adapter interfaces they depend on.
package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"order-handoff/internal/models"
)

// Client talks to the verification authority over its REST surface. All
// methods take a context and are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the authority at baseURL, authenticating
// with the given bearer token. httpClient may be nil.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, token: token, http: httpClient}
}

// GeneratePasscodes requests a fresh passcode pair for an order.
func (c *Client) GeneratePasscodes(ctx context.Context, orderID string) (*models.PasscodePair, error) {
	var pair models.PasscodePair
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/passcodes", orderID), nil, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// ResendPasscode invalidates and reissues one code of the pair.
func (c *Client) ResendPasscode(ctx context.Context, orderID string, kind models.PasscodeKind) (*models.PasscodePair, error) {
	var pair models.PasscodePair
	body := models.ResendRequest{Kind: kind}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/passcodes/resend", orderID), body, &pair)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// VerifyPickup submits the pickup code plus optional location sample.
func (c *Client) VerifyPickup(ctx context.Context, orderID string, req models.VerifyRequest) (*models.PickupVerifyResult, error) {
	var result models.PickupVerifyResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/verify/pickup", orderID), req, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyDelivery submits the delivery code plus optional location sample.
func (c *Client) VerifyDelivery(ctx context.Context, orderID string, req models.VerifyRequest) (*models.DeliveryVerifyResult, error) {
	var result models.DeliveryVerifyResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/verify/delivery", orderID), req, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadProof attaches a proof photo to one side of an order. The blob is
// streamed as multipart form data.
func (c *Client) UploadProof(ctx context.Context, orderID string, proofType models.PasscodeKind, photo io.Reader, contentType string) (*models.EvidenceRecord, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("proof_type", string(proofType)); err != nil {
		return nil, fmt.Errorf("handoff.UploadProof: %w", err)
	}
	fw, err := mw.CreateFormFile("photo", fmt.Sprintf("%s.jpg", proofType))
	if err != nil {
		return nil, fmt.Errorf("handoff.UploadProof: %w", err)
	}
	if _, err := io.Copy(fw, photo); err != nil {
		return nil, fmt.Errorf("handoff.UploadProof: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("handoff.UploadProof: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+fmt.Sprintf("/orders/%s/proof", orderID), &buf)
	if err != nil {
		return nil, fmt.Errorf("handoff.UploadProof: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	var rec models.EvidenceRecord
	if err := c.send(req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetProof fetches the active evidence record for one side of an order.
// ErrNotFound means no proof has been uploaded for that side yet.
func (c *Client) GetProof(ctx context.Context, orderID string, proofType models.PasscodeKind) (*models.EvidenceRecord, error) {
	var rec models.EvidenceRecord
	path := fmt.Sprintf("/orders/%s/proof?proof_type=%s", orderID, proofType)
	if err := c.do(ctx, http.MethodGet, path, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReportIssue files a free-text dispute against an order.
func (c *Client) ReportIssue(ctx context.Context, orderID, description string) error {
	body := models.ReportIssueRequest{Description: description}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/issues", orderID), body, nil)
}

// SubmitRating attaches a 1-5 rating to a verified milestone.
func (c *Client) SubmitRating(ctx context.Context, orderID string, req models.SubmitRatingRequest) (*models.Rating, error) {
	var rating models.Rating
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/rating", orderID), req, &rating)
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

// SkipRating finalizes the order without a rating.
func (c *Client) SkipRating(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%s/rating/skip", orderID), nil, nil)
}

// FetchPendingOrders returns the open-order feed for the authenticated
// business: the poller's source of truth.
func (c *Client) FetchPendingOrders(ctx context.Context) (*models.PendingOrdersResponse, error) {
	var resp models.PendingOrdersResponse
	err := c.do(ctx, http.MethodGet, "/business/orders/pending", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// MarkViewed clears one order's unread flag server-side.
func (c *Client) MarkViewed(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/business/orders/%s/viewed", orderID), nil, nil)
}

// MarkAllViewed clears every unread flag server-side.
func (c *Client) MarkAllViewed(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/business/orders/viewed", nil, nil)
}

// FetchVerificationStatus returns the order's milestone flags, timestamps
// and escrow release log.
func (c *Client) FetchVerificationStatus(ctx context.Context, orderID string) (*models.VerificationStatus, error) {
	var status models.VerificationStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%s/verification", orderID), nil, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// do builds, sends and decodes a JSON round-trip.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("handoff: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("handoff: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.send(req, out)
}

// send executes the request and maps wire errors back into the shared
// sentinel taxonomy. Transport failures become ErrRemoteUnavailable so
// callers can retry or fall back to cached state.
func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("handoff: decode response: %w", err)
		}
		return nil
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: server returned %d", models.ErrRemoteUnavailable, resp.StatusCode)
	}

	var errResp models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("handoff: authority returned %d", resp.StatusCode)
	}
	return decodeWireError(resp.StatusCode, errResp)
}

// decodeWireError translates an error envelope into a sentinel error.
func decodeWireError(status int, errResp models.ErrorResponse) error {
	switch errResp.Code {
	case models.CodeNotFound:
		return models.ErrNotFound
	case models.CodeConflict:
		return models.ErrConflict
	case models.CodeForbidden:
		return models.ErrForbidden
	case models.CodeInvalidCode:
		return models.ErrInvalidCode
	case models.CodeExpired:
		return models.ErrCodeExpired
	case models.CodeEvidenceMissing:
		return models.ErrEvidenceMissing
	case models.CodeAlreadyVerified:
		return models.ErrAlreadyVerified
	case models.CodeBadTransition:
		return models.ErrInvalidTransition
	case models.CodeRatingRejected:
		return models.ErrRatingOutOfRange
	}
	if status == http.StatusNotFound {
		return models.ErrNotFound
	}
	return fmt.Errorf("handoff: authority rejected request (%d): %s", status, errResp.Message)
}
