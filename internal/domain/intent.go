package domain

type Intent string

const (
	IntentNews        Intent = "NEWS"
	IntentBooks       Intent = "BOOKS"
	IntentWeather     Intent = "WEATHER" // reserved, no source behind it yet
	IntentGeneralInfo Intent = "GENERAL_INFO"
	IntentUnknown     Intent = "UNKNOWN"
)

func (i Intent) String() string {
	return string(i)
}
