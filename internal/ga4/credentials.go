// Package ga4 fetches reports from the Google Analytics Data API using
// service-account credentials supplied through the environment.
package ga4

import (
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// Configuration errors. Their messages are shown to API clients as-is.
var (
	ErrMissingPropertyID      = errors.New("Missing GA4_PROPERTY_ID environment variable")
	ErrMissingCredentials     = errors.New("Missing GOOGLE_APPLICATION_CREDENTIALS_JSON environment variable")
	ErrInvalidCredentialsJSON = errors.New("Invalid GOOGLE_APPLICATION_CREDENTIALS_JSON value; must be valid JSON")
	ErrIncompleteCredentials  = errors.New("Service account credentials must include client_email and private_key")
)

// Credentials is the subset of a service account key file we use
type Credentials struct {
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// ParseCredentials decodes a service account key and checks the required fields
func ParseCredentials(raw string) (*Credentials, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrMissingCredentials
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, ErrInvalidCredentialsJSON
	}

	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, ErrIncompleteCredentials
	}
	return &creds, nil
}

// Settings identifies the property to report on and how to authenticate
type Settings struct {
	PropertyID  string
	Credentials *Credentials
}

// LoadSettings validates the raw environment values in the order they are required
func LoadSettings(propertyID, credentialsJSON string) (*Settings, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, ErrMissingPropertyID
	}

	creds, err := ParseCredentials(credentialsJSON)
	if err != nil {
		return nil, err
	}

	return &Settings{PropertyID: propertyID, Credentials: creds}, nil
}

// Property returns the resource name used by the Data API
func (s *Settings) Property() string {
	return "properties/" + strings.TrimPrefix(s.PropertyID, "properties/")
}

// IsConfigError reports whether err comes from missing or malformed environment input
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingPropertyID) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidCredentialsJSON) ||
		errors.Is(err, ErrIncompleteCredentials)
}
