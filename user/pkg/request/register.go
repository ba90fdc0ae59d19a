package request

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type Register struct {
	Name     string `validate:"required,max=255"       json:"name"`
	Email    string `validate:"required,email,max=255" json:"email"`
	Password string `validate:"required,min=8,max=72"  json:"password"`
}

func (r Register) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", r.Email).Str("name", r.Name)
}

func (r Register) MarshalJSON() ([]byte, error) {
	r.Password = "***"
	type R Register
	return json.Marshal(R(r))
}
