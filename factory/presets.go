package factory

import (
	"encoding/json"
)

// MonthlyLeaseJSON returns JSON for a single-property lease billed monthly.
func MonthlyLeaseJSON(name, begin, end, property string, rent, vatRate float64) string {
	cj := map[string]interface{}{
		"name":      name,
		"begin":     begin,
		"end":       end,
		"frequency": "months",
		"discount":  0,
		"vatRate":   vatRate,
		"properties": []map[string]interface{}{{
			"property": map[string]interface{}{"name": property, "price": rent},
			"rent":     rent,
		}},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}

// ServicedOfficeJSON returns JSON for a monthly office lease with
// maintenance and utilities charges and a standing discount.
func ServicedOfficeJSON(name, begin, end string, rent, maintenance, utilities, discount float64) string {
	cj := map[string]interface{}{
		"name":      name,
		"begin":     begin,
		"end":       end,
		"frequency": "months",
		"discount":  discount,
		"vatRate":   0.2,
		"properties": []map[string]interface{}{{
			"property": map[string]interface{}{"name": "Office Space", "price": rent},
			"rent":     rent,
			"expenses": []map[string]interface{}{
				{"title": "Maintenance", "amount": maintenance},
				{"title": "Utilities", "amount": utilities},
			},
		}},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}

// ParkingHourlyJSON returns JSON for a parking spot rented by the hour
// over one day.
func ParkingHourlyJSON(name, day string, hourlyRate float64) string {
	cj := map[string]interface{}{
		"name":      name,
		"begin":     day + " 00:00",
		"end":       day + " 23:00",
		"frequency": "hours",
		"discount":  0,
		"vatRate":   0.2,
		"properties": []map[string]interface{}{{
			"property": map[string]interface{}{"name": "Parking Spot", "price": hourlyRate},
			"rent":     hourlyRate,
		}},
	}
	b, _ := json.MarshalIndent(cj, "", "  ")
	return string(b)
}
