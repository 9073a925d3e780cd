package models

const (
	StatusPending   = "Pending"
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

// Appointment references its patient, doctor and service by id only.
type Appointment struct {
	ID        string `bson:"_id,omitempty" json:"id"`
	PatientID string `bson:"appointment_PatientID" json:"patientId"`
	DoctorID  string `bson:"appointment_DoctorID,omitempty" json:"doctorId,omitempty"`
	ServiceID string `bson:"appointment_ServiceID" json:"serviceId"`
	Date      string `bson:"appointment_Date" json:"date"`
	Time      string `bson:"appointment_Time" json:"time"`
	Comment   string `bson:"appointment_Comment" json:"comment"`
	Status    string `bson:"appointment_Status" json:"status"`
}

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
