package domain

type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a rendered notification handed to the delivery side.
type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}
