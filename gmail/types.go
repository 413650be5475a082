package gmail

// Details holds the normalized content of one fetched message.
type Details struct {
	Subject  string
	Sender   string // bare address, display name stripped
	Body     string
	ThreadID string
}

// Summary is a headers-only listing row, no body fetch involved.
type Summary struct {
	ID      string
	Subject string
	Sender  string
	Snippet string
}
