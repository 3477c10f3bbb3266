package models

import "encoding/json"

const (
	UnnamedLabel      = "Unnamed"
	DefaultLabelColor = "gray"
)

type Board struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"desc,omitempty"`
	URL         string          `json:"url,omitempty"`
	Prefs       json.RawMessage `json:"prefs,omitempty"`
}

type List struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Position float64 `json:"pos"`
}

// Label name and color come back as null for unnamed or colorless labels.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
}

func (l Label) DisplayName() string {
	if l.Name == "" {
		return UnnamedLabel
	}
	return l.Name
}

func (l Label) DisplayColor() string {
	if l.Color == "" {
		return DefaultLabelColor
	}
	return l.Color
}

type Member struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
