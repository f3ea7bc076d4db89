package models

// Parking is a bicycle parking lot.
type Parking struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Coordinates    Coordinates `json:"coordinates"`
	FeeDescription string      `json:"feeDescription,omitempty"`
}

// ParkingList is the body of GET /v1/parkings.
type ParkingList struct {
	Parkings   []Parking `json:"parkings"`
	TotalCount int       `json:"totalCount"`
}
