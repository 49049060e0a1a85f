package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleFinance = "finance"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the known user roles.
func ValidRole(role string) bool {
	switch role {
	case RolePatient, RoleDoctor, RoleFinance, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"` // bcrypt hash, never serialized
	Role           string             `bson:"role" json:"role"`
	Specialization string             `bson:"specialization,omitempty" json:"specialization,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address        string             `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Party is the expanded form of a user reference inside a visit.
type Party struct {
	ID             primitive.ObjectID `json:"_id"`
	Name           string             `json:"name,omitempty"`
	Email          string             `json:"email,omitempty"`
	Phone          string             `json:"phone,omitempty"`
	Address        string             `json:"address,omitempty"`
	Specialization string             `json:"specialization,omitempty"`
}

// AsParty drops everything but the public contact fields.
func (u *User) AsParty() *Party {
	return &Party{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Phone:          u.Phone,
		Address:        u.Address,
		Specialization: u.Specialization,
	}
}
