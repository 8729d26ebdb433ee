// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"
)

// EncryptRequest contains the payload to encrypt. The key id comes from the
// URL parameter, not the request body.
type EncryptRequest struct {
	Data any `json:"data" binding:"required"`
}

// Validate checks if the encrypt request is valid.
func (r *EncryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Data, validation.Required),
	)
}

// DecryptRequest contains the package string to decrypt.
type DecryptRequest struct {
	Package string `json:"package" binding:"required"`
}

// Validate checks if the decrypt request is valid.
func (r *DecryptRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Package, validation.Required),
	)
}
