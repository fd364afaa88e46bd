package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "student"
)
