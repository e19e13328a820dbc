package models

// LoginState is the login state of the shared browser session.
type LoginState int

const (
	NotStarted LoginState = iota
	LoggedOut
	LoggedIn
)

func (s LoginState) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case LoggedIn:
		return "logged_in"
	default:
		return "not_started"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s LoginState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// LoginStatus is the outcome of one login attempt.
type LoginStatus string

const (
	LoginAlready LoginStatus = "already"
	LoginSuccess LoginStatus = "success"
	LoginTimeout LoginStatus = "timeout"
)

// LoginResult is returned by Login. A timeout is a normal result; the caller
// may simply call Login again.
type LoginResult struct {
	Status  LoginStatus `json:"status"`
	State   LoginState  `json:"state"`
	Message string      `json:"message"`
}
