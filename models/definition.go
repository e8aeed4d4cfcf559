package models

// Definition is a task definition (an RPC node) that flavours implement.
type Definition struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Name is the cleartext name of the definition.
	Name string `json:"name"`
}

// ListDefinition is the definition shape returned by list queries.
type ListDefinition struct {
	// ID is the server-assigned identifier.
	ID ID `json:"id"`

	// Name is the cleartext name of the definition.
	Name string `json:"name"`

	// Hash is the content hash of the definition (completely unique).
	Hash NodeHash `json:"hash"`

	// Description is the optional human-readable description.
	Description *string `json:"description"`
}

// SearchOption is a value/label pair returned by search queries for widgets.
type SearchOption struct {
	Value ID     `json:"value"`
	Label string `json:"label"`
}
