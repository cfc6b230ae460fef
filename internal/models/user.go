package models

import "time"

// User is a full user row. The password column holds a bcrypt hash and is
// never serialized.
type User struct {
	Username    string     `db:"username" json:"username"`
	Password    string     `db:"password" json:"-"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Phone       string     `db:"phone" json:"phone"`
	JoinAt      time.Time  `db:"join_at" json:"join_at"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at"`
}

// PublicUser carries the user attributes safe to return to any
// authenticated caller.
type PublicUser struct {
	Username  string `db:"username" json:"username"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Phone     string `db:"phone" json:"phone"`
}

// Public projects the full row onto its public fields.
func (u User) Public() PublicUser {
	return PublicUser{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
	}
}
