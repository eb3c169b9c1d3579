// Package auth implements the credential lifecycle: registration, login,
// password hashing, and stateless JWT issuance and validation.
package auth
