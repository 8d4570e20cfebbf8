package email

const (
	subjectLeadAssignedFmt = "New lead assigned: %s"
	subjectOrderCreatedFmt = "New order %s"
)
