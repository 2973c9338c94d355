package models

// CandidateRecord is the structured result of an interview.
// A nil field means the value was not disclosed or could not be extracted.
type CandidateRecord struct {
	FullName        *string `json:"full_name"`
	Email           *string `json:"email"`
	Role            *string `json:"role"`
	LastCompanyName *string `json:"last_company_name"`
	Experience      *string `json:"experience"`
	PreviousSalary  *string `json:"previous_salary"`
	ExpectedSalary  *string `json:"expected_salary"`
}

// IsEmpty reports whether no field was extracted.
func (c CandidateRecord) IsEmpty() bool {
	return c.FullName == nil && c.Email == nil && c.Role == nil &&
		c.LastCompanyName == nil && c.Experience == nil &&
		c.PreviousSalary == nil && c.ExpectedSalary == nil
}

// CandidateExtracted is published once per session when extraction finishes.
type CandidateExtracted struct {
	EventType  string          `json:"eventType"`
	SessionID  string          `json:"sessionId"`
	StreamSid  string          `json:"streamSid,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Trigger    string          `json:"trigger"`
	Candidate  CandidateRecord `json:"candidate"`
	ParseError string          `json:"parseError,omitempty"`
}
