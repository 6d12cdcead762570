// package models defines the data model for the download service
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations are [User] and [Download].
type Model interface {
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

var (
	_ Model = (*User)(nil)
	_ Model = (*Download)(nil)
)
