package pet

// CreateRequest is the body of POST /pets.
type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Species string `json:"species" validate:"required,oneof=Dog Cat Bird Other"`
	Breed   string `json:"breed" validate:"max=255"`
	Age     *int   `json:"age" validate:"omitempty,min=0,max=100"`
	Image   string `json:"image" validate:"omitempty,url,max=2048"`
}

// UpdateRequest changes profile fields only. Medical history is never edited here.
type UpdateRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Species *string `json:"species" validate:"omitempty,oneof=Dog Cat Bird Other"`
	Breed   *string `json:"breed" validate:"omitempty,max=255"`
	Age     *int    `json:"age" validate:"omitempty,min=0,max=100"`
	Image   *string `json:"image" validate:"omitempty,max=2048"`
}
