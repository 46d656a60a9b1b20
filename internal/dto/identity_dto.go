package dto

type InviteInput struct {
	Email string   `json:"email" validate:"required,email"`
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=admin instructor student"`
}

type RegisterInput struct {
	Code          string  `json:"code" validate:"required,len=6,numeric"`
	Email         string  `json:"email" validate:"required,email"`
	Username      string  `json:"username" validate:"required,min=3,max=50"`
	Password      string  `json:"password" validate:"required,min=8"`
	FirstName     string  `json:"first_name"`
	MiddleName    *string `json:"middle_name"`
	LastName      string  `json:"last_name"`
	PreferredName *string `json:"preferred_name"`
}

type ResetInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
