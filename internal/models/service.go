package models

const (
	CategoryLaboratoryTest = "Laboratory Test"
	CategoryUltrasounds    = "Ultrasounds"
)

type Service struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Name     string `bson:"service_Name" json:"name"`
	Category string `bson:"service_Category" json:"category"`
	Price    string `bson:"service_Price" json:"price"`
}
