package core

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
)

func TestOperations_JSON_Unmarshalling(t *testing.T) {

	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	jsonRead := `{"operations":["create","read","update","delete","list"]}`
	err := json.Unmarshal([]byte(jsonRead), &object)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, []Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete, OperationList}, object.Operations)

	for _, invalid := range []string{`{"operations":["invalid"]}`, `{"operations":["Create"]}`, `{"operations":[1]}`} {
		err = json.Unmarshal([]byte(invalid), &object)
		assert.Error(t, err, invalid)
	}
}
