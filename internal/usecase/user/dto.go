package user

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Username  string `validate:"required,min=3,max=32,username"`
	Email     string `validate:"required,email,max=254"`
	FirstName string `validate:"omitempty,max=100"`
	LastName  string `validate:"omitempty,max=100"`
}

// UpdateUserRequest represents a partial update of an existing user.
// Empty fields are left unchanged.
type UpdateUserRequest struct {
	Username  string `validate:"omitempty,min=3,max=32,username"`
	Email     string `validate:"omitempty,email,max=254"`
	FirstName string `validate:"omitempty,max=100"`
	LastName  string `validate:"omitempty,max=100"`
}

// IsEmpty reports whether the request changes nothing.
func (r UpdateUserRequest) IsEmpty() bool {
	return r.Username == "" && r.Email == "" && r.FirstName == "" && r.LastName == ""
}
