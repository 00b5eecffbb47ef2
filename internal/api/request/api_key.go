package request

// CreateAPIKey holds the parameters for creating an operator API key.
type CreateAPIKey struct {
	Name     string `json:"name" validate:"required,min=1,max=255"`
	Operator string `json:"operator" validate:"required,min=1,max=255"`
}
