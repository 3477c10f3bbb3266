package models

import "strings"

// Credentials are the two opaque secrets attached to every upstream call.
type Credentials struct {
	APIKey string `json:"apiKey"`
	Token  string `json:"token"`
}

func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.Token) != ""
}

// Masked renders the credentials for log output without leaking them.
func (c Credentials) Masked() string {
	return mask(c.APIKey) + "/" + mask(c.Token)
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "…"
}
