package identity

import "context"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is the identity attached to cart mutations and order queries.
type User struct {
	ID   string
	Role string
}

// IsAdmin reports whether the user may read every order scope.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Provider yields the current user, or nil when nobody is signed in.
type Provider interface {
	Current(ctx context.Context) *User
}

type ctxKey struct{}

// WithUser stores the signed-in user on the context.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// FromContext extracts the signed-in user, if any.
func FromContext(ctx context.Context) *User {
	if ctx == nil {
		return nil
	}
	user, _ := ctx.Value(ctxKey{}).(*User)
	return user
}

// ContextProvider resolves identity from the request context, fed by the
// auth middleware.
type ContextProvider struct{}

func (ContextProvider) Current(ctx context.Context) *User {
	return FromContext(ctx)
}

// StaticProvider always answers with the configured user. A nil user models
// the signed-out state.
type StaticProvider struct {
	User *User
}

func (p *StaticProvider) Current(context.Context) *User {
	return p.User
}
