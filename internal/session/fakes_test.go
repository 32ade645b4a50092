package session

import (
	"context"
	"sync"
)

// fakeAPI is a scriptable API. Unset results answer with sensible defaults.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	user       *User
	profileErr error
	profileFn  func(ctx context.Context) (*User, error)

	loginErr  error
	logoutErr error

	newBalance float64
	walletErr  error
	lastOp     Operation
	lastAmount float64

	data    map[View]*DashboardData
	dataErr error

	loanID     string
	loanErr    error
	lastLoan   LoanRequest
	lastLoanID string
	repayment  *Repayment
}

func newFakeAPI(user *User) *fakeAPI {
	return &fakeAPI{
		calls: make(map[string]int),
		user:  user,
		data:  make(map[View]*DashboardData),
	}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) Profile(ctx context.Context) (*User, error) {
	f.record("profile")
	if f.profileFn != nil {
		return f.profileFn(ctx)
	}
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.user == nil {
		return nil, nil
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*User, error) {
	f.record("login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error {
	f.record("logout")
	return f.logoutErr
}

func (f *fakeAPI) TopUp(ctx context.Context, amount float64) (float64, error) {
	f.record("topup")
	f.mu.Lock()
	f.lastAmount = amount
	f.mu.Unlock()
	if f.walletErr != nil {
		return 0, f.walletErr
	}
	return f.newBalance, nil
}

func (f *fakeAPI) UpdateWallet(ctx context.Context, op Operation, amount float64) (float64, error) {
	f.record("update-wallet")
	f.mu.Lock()
	f.lastOp = op
	f.lastAmount = amount
	f.mu.Unlock()
	if f.walletErr != nil {
		return 0, f.walletErr
	}
	return f.newBalance, nil
}

func (f *fakeAPI) DashboardData(ctx context.Context, view View) (*DashboardData, error) {
	f.record("dashboard-" + string(view))
	if f.dataErr != nil {
		return nil, f.dataErr
	}
	if data, ok := f.data[view]; ok {
		d := *data
		return &d, nil
	}
	return &DashboardData{User: *f.user, Analytics: Analytics{WalletBalance: f.user.WalletBalance}}, nil
}

func (f *fakeAPI) CreateLoan(ctx context.Context, req LoanRequest) (string, error) {
	f.record("create-loan")
	f.mu.Lock()
	f.lastLoan = req
	f.mu.Unlock()
	if f.loanErr != nil {
		return "", f.loanErr
	}
	return f.loanID, nil
}

func (f *fakeAPI) FundLoan(ctx context.Context, id string) (float64, error) {
	f.record("fund-loan")
	f.mu.Lock()
	f.lastLoanID = id
	f.mu.Unlock()
	if f.loanErr != nil {
		return 0, f.loanErr
	}
	return f.newBalance, nil
}

func (f *fakeAPI) RepayLoan(ctx context.Context, id string) (*Repayment, error) {
	f.record("repay-loan")
	f.mu.Lock()
	f.lastLoanID = id
	f.mu.Unlock()
	if f.loanErr != nil {
		return nil, f.loanErr
	}
	r := *f.repayment
	return &r, nil
}

// recordingNavigator remembers every requested navigation
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

// apiError mimics a backend error payload
type apiError struct {
	message string
	code    string
}

func (e *apiError) Error() string        { return e.message }
func (e *apiError) ErrorCode() string    { return e.code }
func (e *apiError) ErrorMessage() string { return e.message }

type testEnv struct {
	api       *fakeAPI
	nav       *recordingNavigator
	durable   *MemoryStorage
	ephemeral *MemoryStorage
	ctrl      *Controller
}

func newTestEnv(user *User) *testEnv {
	env := &testEnv{
		api:       newFakeAPI(user),
		nav:       &recordingNavigator{},
		durable:   NewMemoryStorage(),
		ephemeral: NewMemoryStorage(),
	}
	env.ctrl = NewController(env.api, NewFlags(env.durable, env.ephemeral), env.nav)
	return env
}

func testUser(role Role) *User {
	return &User{
		ID:            "01HZX3Q8WJ5N9V2K7M4T6R1B0C",
		Name:          "Asha Rao",
		Email:         "asha@example.com",
		Role:          role,
		WalletBalance: 2500,
	}
}
