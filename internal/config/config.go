package config

import (
	"fmt"
	"os"
)

// Credentials for the Robinhood password grant. Passed explicitly to the
// broker client, never read from a package-level variable.
type Credentials struct {
	Username    string
	Password    string
	MFACode     string
	DeviceToken string
}

func LoadCredentials() (Credentials, error) {
	creds := Credentials{
		Username:    os.Getenv("ROBINHOOD_USERNAME"),
		Password:    os.Getenv("ROBINHOOD_PASSWORD"),
		MFACode:     os.Getenv("ROBINHOOD_MFA_CODE"),
		DeviceToken: os.Getenv("ROBINHOOD_DEVICE_TOKEN"),
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("empty robinhood username or password")
	}

	return creds, nil
}

func LoadQuotesAPIKey() (string, error) {
	key := os.Getenv("TDA_API_KEY")
	if key == "" {
		return "", fmt.Errorf("empty td ameritrade api key")
	}
	return key, nil
}
