/*
Package core holds the types shared by all carlot packages.
*/
package core

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Operation represents a modifying storage operation, one of Create, Read, Update, Delete, List
type Operation string

// all supported storage operations
const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationList   Operation = "list"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	switch *o {
	case OperationCreate, OperationRead, OperationUpdate, OperationDelete, OperationList:
		return nil
	default:
		return fmt.Errorf("%s is not valid Operation", s)
	}
}

// Resource names used in routes, notifications and logs
const (
	ResourceBrand   = "brand"
	ResourceModel   = "model"
	ResourceListing = "listing"
	ResourceInquiry = "inquiry"
	ResourceAdmin   = "admin"
)
