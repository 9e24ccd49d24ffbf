package domain

type City struct {
	ID          string `json:"_id,omitempty"`
	CityName    string `json:"cityName"`
	Country     string `json:"country,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type Hotel struct {
	ID                string   `json:"_id,omitempty"`
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	Image             string   `json:"image,omitempty"`
	Price             float64  `json:"price,omitempty"`
	StarRating        int      `json:"starRating,omitempty"`
	PropertyType      string   `json:"propertyType,omitempty"`
	MealPlan          string   `json:"mealPlan,omitempty"`
	SelectedAmenities []string `json:"selectedAmenities,omitempty"`
	City              string   `json:"city,omitempty"`
	IsCustom          bool     `json:"isCustom,omitempty"`
}

type Activity struct {
	ID                 string   `json:"_id,omitempty"`
	Name               string   `json:"name"`
	Description        string   `json:"description,omitempty"`
	Image              string   `json:"image,omitempty"`
	Price              float64  `json:"price,omitempty"`
	Duration           float64  `json:"duration,omitempty"`
	SelectedCategories []string `json:"selectedCategories,omitempty"`
	Slots              []Slot   `json:"slots,omitempty"`
	City               string   `json:"city,omitempty"`
}

type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}
