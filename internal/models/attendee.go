package models

// Attendee represents one row of the event roster CSV.
type Attendee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Extra Extra  `json:"extra,omitempty"`
}

// Record builds the sign-in payload embedded in the attendee's QR code.
func (a Attendee) Record(eventName string) SigninRecord {
	return SigninRecord{
		ID:    a.ID,
		Name:  a.Name,
		Event: eventName,
		Extra: a.Extra,
	}
}
