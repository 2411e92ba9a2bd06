package models

// Category groups products in the catalog.
type Category struct {
	BaseModel
	Name        string    `gorm:"uniqueIndex" json:"name"`
	Description string    `json:"description"`
	Products    []Product `json:"products,omitempty"`
}

// FeedbackMessage stores a contact-form message from a visitor.
type FeedbackMessage struct {
	BaseModel
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Processed bool   `json:"processed"`
}
