package model

// Pharmacy is a registered pharmacy. IsVerified is set only by a
// super_admin; IsOnDuty is toggled by the pharmacy's own admin.
type Pharmacy struct {
	Base
	Name       string  `json:"name" db:"name"`
	Address    string  `json:"address" db:"address"`
	Phone      string  `json:"phone" db:"phone"`
	Latitude   float64 `json:"latitude" db:"latitude"`
	Longitude  float64 `json:"longitude" db:"longitude"`
	IsOnDuty   bool    `json:"is_on_duty" db:"is_on_duty"`
	IsVerified bool    `json:"is_verified" db:"is_verified"`
}

type CreatePharmacyRequest struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address" binding:"required"`
	Phone     string  `json:"phone" binding:"required,togophone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type SetDutyRequest struct {
	IsOnDuty *bool `json:"is_on_duty" binding:"required"`
}
