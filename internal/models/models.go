package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                       int64
	Email                    string
	FullName                 string
	PassHash                 []byte
	Role                     string
	IsVerified               bool
	VerificationTokenHash    *string
	VerificationTokenExpires *time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Message struct {
	Email   string `json:"to"`
	Name    string `json:"name"`
	Link    string `json:"link"`
	Subject string `json:"subject"`
}
