package model

import "time"

// User is an identity keyed solely by email address. There is no password:
// a user proves ownership of the address by clicking a login link.
//
// Users are provisioned lazily, the first time a login token for their
// address is redeemed.
type User struct {
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Token binds a random UID to an email address. The UID is embedded in the
// login link we email out; presenting it later proves the visitor can read
// that inbox.
//
// Email is stored by value, not as a reference to users: a token can (and
// usually does) exist before its user does.
type Token struct {
	UID       string    `json:"uid"       db:"uid"`
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
