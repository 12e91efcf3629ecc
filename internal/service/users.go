package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
	"github.com/campuswork/marketplace/internal/utils"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Directory owns the users collection.
type Directory struct {
	state      State
	bcryptCost int
	log        *zap.Logger
}

// NewDirectory wires a Directory to the application state. bcryptCost is
// used for new password hashes.
func NewDirectory(state State, bcryptCost int, log *zap.Logger) *Directory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Directory{state: state, bcryptCost: bcryptCost, log: log}
}

// Get returns the public view of user id.
func (d *Directory) Get(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := d.state.View(ctx, func(snap *repository.Snapshot) error {
		rec := snap.User(id)
		if rec == nil {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		u = rec.User
		return nil
	})
	return u, err
}

// AdjustBalance adds delta to the user's balance. A result below zero is
// refused with ErrInsufficientFunds and nothing changes.
func (d *Directory) AdjustBalance(ctx context.Context, id string, delta int64) (model.User, error) {
	var u model.User
	err := d.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		rec := snap.User(id)
		if rec == nil {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		if rec.Balance+delta < 0 {
			return fmt.Errorf("balance %d, change %d: %w", rec.Balance, delta, ErrInsufficientFunds)
		}
		rec.Balance += delta
		u = rec.User
		return nil
	})
	return u, err
}

// Register validates the form and creates a user with no role and an
// empty wallet.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := utils.NormalizeEmail(in.Email)
	switch {
	case name == "":
		return model.User{}, invalid("name", "is required")
	case email == "":
		return model.User{}, invalid("email", "is required")
	case in.Password == "":
		return model.User{}, invalid("password", "is required")
	case !utils.IsCampusEmail(email):
		return model.User{}, invalid("email", "must use the @student.unsri.ac.id domain")
	}
	if p := utils.PasswordProblem(in.Password); p != "" {
		return model.User{}, invalid("password", p)
	}
	if in.Password != in.ConfirmPassword {
		return model.User{}, invalid("confirmPassword", "does not match password")
	}

	hash, err := utils.HashPassword(in.Password, d.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	rec := model.UserRecord{
		User: model.User{
			ID:        newID(),
			Name:      name,
			Email:     email,
			AvatarURL: utils.AvatarURL(name),
			Role:      model.RoleNone,
			Balance:   0,
		},
		PasswordHash: hash,
	}
	err = d.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		if snap.UserByEmail(email) != nil {
			return ErrEmailExists
		}
		snap.Users = append(snap.Users, rec)
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	d.log.Info("user registered", zap.String("user_id", rec.ID))
	return rec.User, nil
}

// Authenticate checks an email and password pair.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = utils.NormalizeEmail(email)
	var rec *model.UserRecord
	err := d.state.View(ctx, func(snap *repository.Snapshot) error {
		if r := snap.UserByEmail(email); r != nil {
			cp := *r
			rec = &cp
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	if rec == nil || !utils.VerifyPassword(rec.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return rec.User, nil
}

// SelectRole sets the role of a user who has not chosen one yet.
func (d *Directory) SelectRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Selectable() {
		return model.User{}, invalid("role", "must be CLIENT, FREELANCER or BOTH")
	}
	var u model.User
	err := d.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		rec := snap.User(id)
		if rec == nil {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		if rec.Role != model.RoleNone {
			return ErrRoleAlreadySet
		}
		rec.Role = role
		u = rec.User
		return nil
	})
	return u, err
}

// UpdateProfile changes the display name and avatar. Empty values keep the
// current ones. Bookings keep the name they were created with.
func (d *Directory) UpdateProfile(ctx context.Context, id, name, avatarURL string) (model.User, error) {
	name = strings.TrimSpace(name)
	avatarURL = strings.TrimSpace(avatarURL)
	var u model.User
	err := d.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		rec := snap.User(id)
		if rec == nil {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		if name != "" {
			rec.Name = name
		}
		if avatarURL != "" {
			rec.AvatarURL = avatarURL
		}
		u = rec.User
		return nil
	})
	return u, err
}
