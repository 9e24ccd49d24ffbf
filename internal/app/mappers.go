package app

import (
	"strconv"
	"strings"

	"github.com/delonixservices/crm/internal/domain"
)

/********** alias registries (single source of truth) **********/

var hotelAliases = map[string][]string{
	"id":          {"_id", "id", "hotelId"},
	"name":        {"name", "hotelName", "title"},
	"description": {"description", "details", "about"},
	"image":       {"image", "imageUrl", "photo", "images.0"},
	"type":        {"propertyType", "type", "category"},
	"meal":        {"mealPlan", "meal_plan", "meals"},
	"city":        {"city", "cityName", "city.cityName"},
}

var activityAliases = map[string][]string{
	"id":          {"_id", "id", "activityId"},
	"name":        {"name", "activityName", "title"},
	"description": {"description", "details", "about"},
	"image":       {"image", "imageUrl", "photo", "images.0"},
	"city":        {"city", "cityName", "city.cityName"},
}

var cityAliases = map[string][]string{
	"id":          {"_id", "id"},
	"name":        {"cityName", "name", "city"},
	"country":     {"country", "countryName"},
	"description": {"description", "about"},
	"image":       {"image", "imageUrl", "photo"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps; numeric parts index arrays.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		switch obj := cur.(type) {
		case map[string]any:
			v, ok := obj[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(obj) {
				return nil
			}
			cur = obj[i]
		default:
			return nil
		}
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// getFloatFlexible: number from several paths (float64/int/string like "1,500" or "8,0").
func getFloatFlexible(m map[string]any, paths ...string) float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") && len(s)-strings.IndexByte(s, ',') != 4 {
				s = strings.ReplaceAll(s, ",", ".")
			} else {
				s = strings.ReplaceAll(s, ",", "")
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// firstSliceStrings: accept []any with either strings or {name/label/url}.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				switch t := it.(type) {
				case string:
					if t != "" {
						out = append(out, t)
					}
				case map[string]any:
					for _, f := range []string{"name", "label", "value", "url"} {
						if s, ok := t[f].(string); ok && s != "" {
							out = append(out, s)
							break
						}
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

/********** catalog mappers **********/

func mapHotel(city string, p map[string]any) domain.Hotel {
	h := domain.Hotel{
		ID:                firstNonEmptyAlias(p, hotelAliases, "id"),
		Name:              firstNonEmptyAlias(p, hotelAliases, "name"),
		Description:       firstNonEmptyAlias(p, hotelAliases, "description"),
		Image:             firstNonEmptyAlias(p, hotelAliases, "image"),
		Price:             getFloatFlexible(p, "price", "pricePerNight", "rate"),
		StarRating:        int(getFloatFlexible(p, "starRating", "stars", "rating")),
		PropertyType:      firstNonEmptyAlias(p, hotelAliases, "type"),
		MealPlan:          firstNonEmptyAlias(p, hotelAliases, "meal"),
		SelectedAmenities: firstSliceStrings(p, "selectedAmenities", "amenities", "facilities"),
		City:              firstNonEmptyAlias(p, hotelAliases, "city"),
	}
	if h.City == "" {
		h.City = city
	}
	return h
}

func mapHotels(city string, in []map[string]any) []domain.Hotel {
	out := make([]domain.Hotel, 0, len(in))
	for _, p := range in {
		if h := mapHotel(city, p); h.Name != "" {
			out = append(out, h)
		}
	}
	return out
}

func mapActivity(city string, p map[string]any) domain.Activity {
	a := domain.Activity{
		ID:                 firstNonEmptyAlias(p, activityAliases, "id"),
		Name:               firstNonEmptyAlias(p, activityAliases, "name"),
		Description:        firstNonEmptyAlias(p, activityAliases, "description"),
		Image:              firstNonEmptyAlias(p, activityAliases, "image"),
		Price:              getFloatFlexible(p, "price", "cost"),
		Duration:           getFloatFlexible(p, "duration", "durationHours", "hours"),
		SelectedCategories: firstSliceStrings(p, "selectedCategories", "categories", "tags"),
		City:               firstNonEmptyAlias(p, activityAliases, "city"),
	}
	if raw, ok := lookupAny(p, "slots").([]any); ok {
		for _, it := range raw {
			s, ok := it.(map[string]any)
			if !ok {
				continue
			}
			a.Slots = append(a.Slots, domain.Slot{
				StartTime: lookupStr(s, "startTime"),
				EndTime:   lookupStr(s, "endTime"),
			})
		}
	}
	if a.City == "" {
		a.City = city
	}
	return a
}

func mapActivities(city string, in []map[string]any) []domain.Activity {
	out := make([]domain.Activity, 0, len(in))
	for _, p := range in {
		if a := mapActivity(city, p); a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

func mapCities(in []map[string]any) []domain.City {
	out := make([]domain.City, 0, len(in))
	for _, p := range in {
		c := domain.City{
			ID:          firstNonEmptyAlias(p, cityAliases, "id"),
			CityName:    firstNonEmptyAlias(p, cityAliases, "name"),
			Country:     firstNonEmptyAlias(p, cityAliases, "country"),
			Description: firstNonEmptyAlias(p, cityAliases, "description"),
			Image:       firstNonEmptyAlias(p, cityAliases, "image"),
		}
		if c.CityName != "" {
			out = append(out, c)
		}
	}
	return out
}
