package models

// Stored field names, shared by patches and queries.
const (
	FieldUserRole         = "user_Role"
	FieldUserFirstName    = "user_FirstName"
	FieldUserMiddleName   = "user_MiddleName"
	FieldUserLastName     = "user_LastName"
	FieldUserAddress      = "user_Address"
	FieldUserMobileNumber = "user_MobileNumber"
	FieldUserEmail        = "user_Email"

	FieldPatientDateOfBirth = "patient_DateOfBirth"
	FieldPatientGender      = "patient_Gender"

	FieldStaffDateOfBirth    = "staff_DateOfBirth"
	FieldStaffGender         = "staff_Gender"
	FieldStaffJobDescription = "staff_JobDescription"
	FieldStaffSchedule       = "staff_Schedule"

	FieldServiceName     = "service_Name"
	FieldServiceCategory = "service_Category"
	FieldServicePrice    = "service_Price"

	FieldAppointmentPatientID = "appointment_PatientID"
	FieldAppointmentDoctorID  = "appointment_DoctorID"
	FieldAppointmentServiceID = "appointment_ServiceID"
	FieldAppointmentDate      = "appointment_Date"
	FieldAppointmentTime      = "appointment_Time"
	FieldAppointmentComment   = "appointment_Comment"
	FieldAppointmentStatus    = "appointment_Status"
)
