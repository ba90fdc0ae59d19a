package request

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginMasksPassword(t *testing.T) {
	expected, _ := json.Marshal(map[string]string{"email": "email", "password": "***"})
	login := Login{Email: "email", Password: "password"}

	actual, _ := json.Marshal(login)

	assert.JSONEq(t, string(expected), string(actual))
	assert.EqualValues(t, "password", login.Password)
}

func TestRegisterMasksPassword(t *testing.T) {
	register := Register{Name: "Ana", Email: "ana@example.com", Password: "hunter22"}

	actual, _ := json.Marshal(register)

	assert.JSONEq(t, `{"name":"Ana","email":"ana@example.com","password":"***"}`, string(actual))
	assert.EqualValues(t, "hunter22", register.Password)
}
