package settings

// Status is the outcome of applying one setting. It is reported back to the
// sender and never causes the agent to fail.
type Status int

// Validation outcomes.
const (
	StatusSuccess Status = iota
	StatusKeyNotRecognized
	StatusFormatInvalid
	StatusOutOfRange
)

var statusNames = map[Status]string{
	StatusSuccess:          "SUCCESS",
	StatusKeyNotRecognized: "KEY_NOT_RECOGNIZED",
	StatusFormatInvalid:    "VALUE_FORMAT_NOT_VALID",
	StatusOutOfRange:       "VALUE_OUTSIDE_RANGE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseStatus maps a wire name back to a Status.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// OK reports whether the setting was accepted.
func (s Status) OK() bool { return s == StatusSuccess }
