package session

// State is the in-memory session of the current page. Only the Controller
// mutates it.
type State struct {
	user *User
}

// IsAuthenticated reports whether the server confirmed a user
func (s *State) IsAuthenticated() bool {
	return s.user != nil
}

// User returns a copy of the confirmed user, or nil
func (s *State) User() *User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *State) confirm(u User) {
	s.user = &u
}

func (s *State) clear() {
	s.user = nil
}

func (s *State) setBalance(balance float64) {
	if s.user != nil {
		s.user.WalletBalance = balance
	}
}
