package dto

// CreateAuthenticationTokenRequestBody defines a request body for CreateAuthenticationToken service.
type CreateAuthenticationTokenRequestBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
