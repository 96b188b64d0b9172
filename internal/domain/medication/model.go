package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication maps to the medicamento table (the clinic's drug catalog).
type Medication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Description  string    `db:"descricao" json:"descricao"`
	Presentation *string   `db:"apresentacao" json:"apresentacao,omitempty"`
	Active       bool      `db:"ativo" json:"ativo"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type Input struct {
	Description  string `json:"descricao"`
	Presentation string `json:"apresentacao"`
	Active       *bool  `json:"ativo"`
}
