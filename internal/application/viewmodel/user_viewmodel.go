package viewmodel

import (
	"context"

	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/platform/mainloop"
)

// SignUpFlow creates the auth account and profile together.
type SignUpFlow interface {
	SignUp(ctx context.Context, email, password string, profile userdom.User) common.Result[string]
}

// UserViewModel exposes account operations and the loaded profile.
type UserViewModel struct {
	*base
	repo   userdom.Repository
	prefs  userdom.PreferenceStore
	signUp SignUpFlow

	User    *Observable[*userdom.User]
	Loading *Observable[bool]
}

func NewUserViewModel(repo userdom.Repository, prefs userdom.PreferenceStore, signUp SignUpFlow, dispatch mainloop.Dispatcher, log *zap.Logger) *UserViewModel {
	return &UserViewModel{
		base:    newBase(dispatch, log),
		repo:    repo,
		prefs:   prefs,
		signUp:  signUp,
		User:    NewObservable[*userdom.User](nil),
		Loading: NewObservable(false),
	}
}

// Login signs in. With remember set the email is kept as the next login hint;
// without it an earlier hint is left as is.
func (vm *UserViewModel) Login(email, password string, remember bool, cb func(common.Result[userdom.Session])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.Login(ctx, email, password)
		if r.OK() && remember {
			vm.rememberEmail(email)
		}
		vm.post(func() { call(cb, r) })
	})
}

func (vm *UserViewModel) rememberEmail(email string) {
	if vm.prefs == nil {
		return
	}
	if err := vm.prefs.PutString(userdom.PrefsNamespace, userdom.PrefsKeyEmail, email); err != nil {
		vm.log.Warn("[user_vm] preference write failed", zap.Error(err))
	}
}

// RememberedEmail returns the stored login hint or "".
func (vm *UserViewModel) RememberedEmail() string {
	if vm.prefs == nil {
		return ""
	}
	v, ok, err := vm.prefs.GetString(userdom.PrefsNamespace, userdom.PrefsKeyEmail)
	if err != nil || !ok {
		return ""
	}
	return v
}

func (vm *UserViewModel) Register(email, password string, cb func(common.Result[string])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.Register(ctx, email, password)
		vm.post(func() { call(cb, r) })
	})
}

func (vm *UserViewModel) AddUserToDatabase(userID string, profile userdom.User, cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.AddUserToDatabase(ctx, userID, profile)
		vm.post(func() { call(cb, r) })
	})
}

// SignUp runs registration and profile creation as one step.
func (vm *UserViewModel) SignUp(email, password string, profile userdom.User, cb func(common.Result[string])) {
	vm.async(func(ctx context.Context) {
		r := vm.signUp.SignUp(ctx, email, password, profile)
		vm.post(func() { call(cb, r) })
	})
}

func (vm *UserViewModel) UpdateProfile(userID string, patch userdom.Patch, cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.UpdateProfile(ctx, userID, patch)
		vm.post(func() { call(cb, r) })
	})
}

func (vm *UserViewModel) ForgetPassword(email string, cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.ForgetPassword(ctx, email)
		vm.post(func() { call(cb, r) })
	})
}

// CurrentUser is synchronous; nil when nobody is logged in.
func (vm *UserViewModel) CurrentUser() *userdom.Session {
	return vm.repo.GetCurrentUser()
}

// LoadUser publishes the profile of userID, or nil if it cannot be read.
func (vm *UserViewModel) LoadUser(userID string) {
	vm.post(func() { vm.Loading.set(true) })
	vm.async(func(ctx context.Context) {
		r := vm.repo.GetUserByID(ctx, userID)
		vm.post(func() {
			vm.Loading.set(false)
			if r.OK() {
				vm.User.set(r.Payload)
				return
			}
			vm.User.set(nil)
		})
	})
}

func (vm *UserViewModel) Logout(cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.Logout(ctx)
		vm.post(func() {
			if r.OK() {
				vm.User.set(nil)
			}
			call(cb, r)
		})
	})
}
