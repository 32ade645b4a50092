package session

// Snapshot is the controller state a page is rendered from
type Snapshot struct {
	Path       string
	User       *User
	View       View
	Dashboard  *DashboardData
	RedirectTo string
	Notices    []Notice
}

// ViewModel describes what a page shows. It carries no rendering detail;
// renderers decide how each part looks.
type ViewModel struct {
	Path            string
	ShowAuthButtons bool
	ShowUserMenu    bool
	UserName        string
	Dashboard       *DashboardViewModel
	Wallet          WalletViewModel
	Notices         []Notice
	RedirectTo      string
}

// DashboardViewModel describes the dashboard part of a page
type DashboardViewModel struct {
	WelcomeName  string
	WelcomeRole  string
	ActiveView   View
	ShowBorrower bool
	ShowLender   bool
	Selectors    []Selector
	Data         *DashboardData
}

// Selector is one of the two view toggle controls
type Selector struct {
	View   View
	Active bool
}

// WalletViewModel is the balance shown in the wallet dialog and in every
// other balance display on the page
type WalletViewModel struct {
	Known   bool
	Balance float64
}

// BuildViewModel maps a snapshot to a view model. It has no side effects.
func BuildViewModel(s Snapshot) ViewModel {
	vm := ViewModel{
		Path:            s.Path,
		ShowAuthButtons: s.User == nil,
		ShowUserMenu:    s.User != nil,
		Notices:         s.Notices,
		RedirectTo:      s.RedirectTo,
	}

	if s.User == nil {
		return vm
	}

	vm.UserName = s.User.Name
	vm.Wallet = WalletViewModel{Known: true, Balance: s.User.WalletBalance}

	if IsDashboard(s.Path) && s.View != "" {
		vm.Dashboard = &DashboardViewModel{
			WelcomeName:  s.User.Name,
			WelcomeRole:  welcomeRole(s.User.Role),
			ActiveView:   s.View,
			ShowBorrower: s.View == ViewBorrower,
			ShowLender:   s.View == ViewLender,
			Selectors: []Selector{
				{View: ViewBorrower, Active: s.View == ViewBorrower},
				{View: ViewLender, Active: s.View == ViewLender},
			},
			Data: s.Dashboard,
		}
	}

	return vm
}

func welcomeRole(role Role) string {
	if role == RoleBorrower {
		return "loan applications"
	}
	return "investments"
}
