package dto

// PutPropertyRequest is the body of PUT /properties/{name}.
type PutPropertyRequest struct {
	Value *string `json:"value" binding:"required"`
}

// PropertyResponse is a single property.
type PropertyResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ResetPropertiesResponse reports an administrative reset.
type ResetPropertiesResponse struct {
	Removed int64 `json:"removed"`
}
