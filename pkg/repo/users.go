package repo

import (
	"context"
	"strings"

	"github.com/learnhub/admin-plane/pkg/model"
	"github.com/learnhub/admin-plane/pkg/storage"
)

// Users is the typed repository for user profile rows.
type Users struct {
	store storage.Store
}

// NewUsers creates a user repository over the store.
func NewUsers(store storage.Store) *Users {
	return &Users{store: store}
}

// Get loads one user profile.
func (r *Users) Get(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := r.store.Get(ctx, storage.UserKey(userID), &user); err != nil {
		return nil, mapStoreErr(err, "user not found")
	}
	return &user, nil
}

// Put writes a user profile unconditionally.
func (r *Users) Put(ctx context.Context, user *model.User) error {
	return mapStoreErr(r.store.Put(ctx, storage.UserKey(user.UserID), user, nil), "")
}

// PutWithRoleGuard writes the profile only if the stored role still equals
// expected. Loss of the condition surfaces as CONFLICT.
func (r *Users) PutWithRoleGuard(ctx context.Context, user *model.User, expected model.Role) error {
	cond := &storage.Condition{Kind: storage.CondAttrEquals, Attr: "Role", Value: string(expected)}
	return mapStoreErr(r.store.Put(ctx, storage.UserKey(user.UserID), user, cond), "")
}

// PutWithStatusGuard writes the profile only if the stored account status
// still equals expected.
func (r *Users) PutWithStatusGuard(ctx context.Context, user *model.User, expected model.AccountStatus) error {
	cond := &storage.Condition{Kind: storage.CondAttrEquals, Attr: "AccountStatus", Value: string(expected)}
	return mapStoreErr(r.store.Put(ctx, storage.UserKey(user.UserID), user, cond), "")
}

// RoleGuardOp returns the transactional write op for a role-guarded
// profile update, for use in mutate-then-audit transactions.
func (r *Users) RoleGuardOp(user *model.User, expected model.Role) storage.WriteOp {
	return storage.WriteOp{
		Key:    storage.UserKey(user.UserID),
		Entity: user,
		Cond:   &storage.Condition{Kind: storage.CondAttrEquals, Attr: "Role", Value: string(expected)},
	}
}

// StatusGuardOp returns the transactional write op for a status-guarded
// profile update.
func (r *Users) StatusGuardOp(user *model.User, expected model.AccountStatus) storage.WriteOp {
	return storage.WriteOp{
		Key:    storage.UserKey(user.UserID),
		Entity: user,
		Cond:   &storage.Condition{Kind: storage.CondAttrEquals, Attr: "AccountStatus", Value: string(expected)},
	}
}

// ListUsersInput filters and pages a user listing.
type ListUsersInput struct {
	Role   model.Role
	Status model.AccountStatus
	Search string
	Limit  int32
	Token  string
}

// List returns one page of user profiles matching the filters. Filters are
// applied after the namespace scan, so a page may require several store
// round trips to fill.
func (r *Users) List(ctx context.Context, in ListUsersInput) ([]model.User, string, error) {
	startKey, err := DecodeToken(in.Token)
	if err != nil {
		return nil, "", err
	}
	limit := clampLimit(in.Limit)
	search := strings.ToLower(in.Search)

	var users []model.User
	for {
		// Each round asks for the remaining quota so the page never
		// overshoots and the continuation token lands on the last
		// returned row.
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixUser,
			SKEquals: storage.SKProfile,
			Page:     storage.Page{Limit: limit - int32(len(users)), StartKey: startKey},
		})
		if err != nil {
			return nil, "", mapStoreErr(err, "")
		}

		page, err := unmarshalPage[model.User](out.Items)
		if err != nil {
			return nil, "", err
		}
		for _, user := range page {
			if in.Role != "" && user.Role != in.Role {
				continue
			}
			if in.Status != "" && user.AccountStatus != in.Status {
				continue
			}
			if search != "" &&
				!strings.Contains(strings.ToLower(user.Name), search) &&
				!strings.Contains(strings.ToLower(user.Email), search) {
				continue
			}
			users = append(users, user)
		}

		startKey = out.NextKey
		if len(users) >= int(limit) || len(startKey) == 0 {
			break
		}
	}
	return users, EncodeToken(startKey), nil
}

// ForEach visits every user profile. Used by the aggregation engine.
func (r *Users) ForEach(ctx context.Context, fn func(model.User) error) error {
	var startKey map[string]string
	for {
		out, err := r.store.Scan(ctx, storage.ScanInput{
			PKPrefix: storage.PrefixUser,
			SKEquals: storage.SKProfile,
			Page:     storage.Page{Limit: MaxPageSize, StartKey: startKey},
		})
		if err != nil {
			return mapStoreErr(err, "")
		}
		page, err := unmarshalPage[model.User](out.Items)
		if err != nil {
			return err
		}
		for _, user := range page {
			if err := fn(user); err != nil {
				return err
			}
		}
		if len(out.NextKey) == 0 {
			return nil
		}
		startKey = out.NextKey
	}
}

// CountSuperAdmins counts users holding the super_admin role. Guards the
// last-super-admin invariant on demotions.
func (r *Users) CountSuperAdmins(ctx context.Context) (int, error) {
	count := 0
	err := r.ForEach(ctx, func(user model.User) error {
		if user.Role == model.RoleSuperAdmin {
			count++
		}
		return nil
	})
	return count, err
}
