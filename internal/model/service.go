package model

// Service is a catalog entry a freelancer offers to clients.
type Service struct {
	ID             string  `json:"id"`
	FreelancerID   string  `json:"freelancerId"`
	FreelancerName string  `json:"freelancerName"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	Price          int64   `json:"price"`
	Rating         float64 `json:"rating"`
	ReviewCount    int     `json:"reviewCount"`
	ImageURL       string  `json:"imageUrl"`
}

// Categories lists the catalog categories a service may be filed under.
var Categories = []string{"Academic", "Creative", "Technical", "Other"}

// CategoryAll is the browse filter that matches every category.
const CategoryAll = "All"

// ValidCategory reports whether c is one of Categories.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
