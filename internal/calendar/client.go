// Package calendar creates deadline reminder events on a Google Calendar
// using a service account.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/beingthebridges/grantpal/internal/errs"
)

const (
	calendarScope  = "https://www.googleapis.com/auth/calendar"
	defaultAPIBase = "https://www.googleapis.com"
	dateLayout     = "2006-01-02"
	// Reminder events span one hour from the deadline date.
	eventDuration = time.Hour
)

type Client struct {
	CalendarID      string
	CredentialsFile string
	TimeZone        string
	// APIBase and TokenURL override the Google endpoints, used by tests.
	APIBase  string
	TokenURL string
	HTTP     *http.Client
}

func NewClient(calendarID, credentialsFile, timeZone string) *Client {
	if timeZone == "" {
		timeZone = "Asia/Singapore"
	}
	return &Client{
		CalendarID:      calendarID,
		CredentialsFile: credentialsFile,
		TimeZone:        timeZone,
		APIBase:         defaultAPIBase,
		HTTP:            &http.Client{Timeout: 15 * time.Second},
	}
}

type serviceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

type Event struct {
	ID       string `json:"id"`
	HTMLLink string `json:"htmlLink"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type eventBody struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

// CreateEvent inserts a one-hour reminder event on the configured calendar
// at the given due date (YYYY-MM-DD).
func (c *Client) CreateEvent(ctx context.Context, title, description, dueDate string) (*Event, error) {
	if c.CalendarID == "" {
		return nil, errs.Config("no destination calendar configured")
	}
	if c.CredentialsFile == "" {
		return nil, errs.Config("no calendar credentials configured")
	}

	due, err := time.Parse(dateLayout, dueDate)
	if err != nil {
		return nil, errs.Input("invalid date %q: expected YYYY-MM-DD", dueDate)
	}

	account, err := c.loadServiceAccount()
	if err != nil {
		return nil, err
	}

	token, err := c.fetchAccessToken(ctx, account)
	if err != nil {
		return nil, err
	}

	body := eventBody{
		Summary:     title,
		Description: description,
		Start:       eventTime{DateTime: due.Format("2006-01-02T15:04:05"), TimeZone: c.TimeZone},
		End:         eventTime{DateTime: due.Add(eventDuration).Format("2006-01-02T15:04:05"), TimeZone: c.TimeZone},
	}

	event, err := c.insertEvent(ctx, token, body)
	if err != nil {
		return nil, err
	}

	log.Printf("Calendar event created: %s", event.HTMLLink)
	return event, nil
}

func (c *Client) loadServiceAccount() (*serviceAccount, error) {
	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, errs.Config("failed to read calendar credentials: %v", err)
	}

	var account serviceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, errs.Config("failed to parse calendar credentials: %v", err)
	}
	if account.ClientEmail == "" || account.PrivateKey == "" {
		return nil, errs.Config("calendar credentials missing client_email or private_key")
	}
	if account.TokenURI == "" {
		account.TokenURI = "https://oauth2.googleapis.com/token"
	}
	return &account, nil
}

// fetchAccessToken exchanges a signed service-account assertion for a
// short-lived OAuth access token.
func (c *Client) fetchAccessToken(ctx context.Context, account *serviceAccount) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(account.PrivateKey))
	if err != nil {
		return "", errs.Config("invalid service account private key: %v", err)
	}

	now := time.Now()
	assertion := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   account.ClientEmail,
		"scope": calendarScope,
		"aud":   account.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	})
	signed, err := assertion.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	tokenURL := account.TokenURI
	if c.TokenURL != "" {
		tokenURL = c.TokenURL
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {signed},
	}
	req, err := http.NewRequestWithContext(ctx, "POST", tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", errs.Upstream(err, "token request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errs.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, snippet), "token endpoint rejected assertion")
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errs.Upstream(err, "failed to decode token response")
	}
	if parsed.AccessToken == "" {
		return "", errs.Upstream(fmt.Errorf("empty access_token"), "token endpoint returned no token")
	}
	return parsed.AccessToken, nil
}

func (c *Client) insertEvent(ctx context.Context, token string, body eventBody) (*Event, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/calendar/v3/calendars/%s/events", c.APIBase, url.PathEscape(c.CalendarID))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errs.Upstream(err, "calendar request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.Upstream(fmt.Errorf("status %d: %s", resp.StatusCode, snippet), "calendar returned error status")
	}

	var event Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, errs.Upstream(err, "failed to decode event response")
	}
	return &event, nil
}
