package models

import "time"

type Schedule struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// Staff is keyed by the owning user's id. Schedule stays nil until one is set.
type Staff struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	DateOfBirth    string    `bson:"staff_DateOfBirth" json:"dateOfBirth"`
	Gender         string    `bson:"staff_Gender" json:"gender"`
	JobDescription string    `bson:"staff_JobDescription" json:"jobDescription"`
	Schedule       *Schedule `bson:"staff_Schedule,omitempty" json:"schedule,omitempty"`
}
