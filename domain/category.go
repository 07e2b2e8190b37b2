package domain

var (
	MessageSuccessGetCategories = "categories retrieved"
	MessageFailedGetCategories  = "failed to get categories"
)

type CategoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}
