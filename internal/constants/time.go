package constants

const (
	// DateFormat is the calendar date format accepted on the command line (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimestampFormat renders completion instants in UTC with millisecond precision,
	// e.g. 2025-01-28T12:00:00.000Z
	TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

	// DisplayTimeFormat is used when printing instants to the terminal
	DisplayTimeFormat = "Mon Jan 2 2006 15:04"
)
