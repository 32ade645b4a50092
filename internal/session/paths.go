package session

const (
	PathLanding   = "/"
	PathDashboard = "/dashboard"
	PathBorrower  = "/borrower"
	PathLender    = "/lender"
)

// IsLanding reports whether path is the public landing page
func IsLanding(path string) bool {
	return path == PathLanding || path == ""
}

// IsDashboard reports whether path renders an authenticated dashboard
func IsDashboard(path string) bool {
	switch path {
	case PathDashboard, PathBorrower, PathLender:
		return true
	}
	return false
}

// forcedView returns the view a role-specific dashboard path pins
func forcedView(path string) (View, bool) {
	switch path {
	case PathBorrower:
		return ViewBorrower, true
	case PathLender:
		return ViewLender, true
	}
	return "", false
}
