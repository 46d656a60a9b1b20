package dto

type ArticleInput struct {
	Level            string   `json:"level" validate:"required,oneof=beginner intermediate advanced expert"`
	Title            string   `json:"title" validate:"required,max=255"`
	ShortDescription string   `json:"short_description"`
	Keywords         []string `json:"keywords"`
	Body             string   `json:"body"`
	ReferenceLinks   []string `json:"reference_links"`
	Groups           []string `json:"groups" validate:"required,min=1,dive,required"`
}

type GroupInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	IsSpecial   bool   `json:"is_special"`
}

type GrantInput struct {
	Username   string `json:"username" validate:"required"`
	GroupName  string `json:"group_name" validate:"required"`
	AccessRole string `json:"access_role" validate:"required,oneof=viewer editor admin"`
}
