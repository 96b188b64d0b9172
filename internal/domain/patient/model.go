package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the paciente table: a resident of the care home.
type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"nome" json:"nome"`
	BirthDate *time.Time `db:"data_nascimento" json:"dataNascimento,omitempty"`
	CPF       *string    `db:"cpf" json:"cpf,omitempty"`
	Room      *string    `db:"quarto" json:"quarto,omitempty"`
	Notes     *string    `db:"observacoes" json:"observacoes,omitempty"`
	Active    bool       `db:"ativo" json:"ativo"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// Input is the request body for create and update. Dates are YYYY-MM-DD.
type Input struct {
	Name      string `json:"nome"`
	BirthDate string `json:"dataNascimento"`
	CPF       string `json:"cpf"`
	Room      string `json:"quarto"`
	Notes     string `json:"observacoes"`
	Active    *bool  `json:"ativo"`
}

const dateLayout = "2006-01-02"

// NormalizeCPF strips punctuation and verifies the two check digits of a
// Brazilian CPF. It returns the 11 digits and whether the number is valid.
func NormalizeCPF(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == ' ':
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) != 11 {
		return "", false
	}
	if strings.Count(digits, digits[:1]) == 11 {
		return "", false
	}
	d := make([]int, 11)
	for i := range digits {
		d[i] = int(digits[i] - '0')
	}
	if checkDigit(d[:9]) != d[9] || checkDigit(d[:10]) != d[10] {
		return "", false
	}
	return digits, true
}

func checkDigit(d []int) int {
	sum := 0
	weight := len(d) + 1
	for _, v := range d {
		sum += v * weight
		weight--
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
