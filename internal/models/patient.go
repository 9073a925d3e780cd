package models

// Patient is keyed by the owning user's id.
type Patient struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	DateOfBirth string `bson:"patient_DateOfBirth" json:"dateOfBirth"`
	Gender      string `bson:"patient_Gender" json:"gender"`
}
