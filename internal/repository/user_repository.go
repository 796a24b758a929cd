package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/modelmagic/portal/internal/models"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

type UserRepository interface {
	BaseRepository[models.User]
	GetByEmail(ctx context.Context, email string, dest *models.User) error
	// FindOrCreate returns the user with the given email, creating a client
	// account when none exists. The bool reports whether it was created.
	FindOrCreate(ctx context.Context, email, name string) (*models.User, bool, error)
	List(ctx context.Context, role models.Role, page, limit int) ([]models.User, int64, error)
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(dest).Error; err != nil {
		return notFound(err, "user")
	}
	return nil
}

func (r *userRepository) FindOrCreate(ctx context.Context, email, name string) (*models.User, bool, error) {
	var u models.User
	err := r.GetByEmail(ctx, email, &u)
	if err == nil {
		if u.Name == "" && name != "" {
			if err := r.db.WithContext(ctx).Model(&u).Update("name", name).Error; err != nil {
				return nil, false, translate(err, "update user name failed")
			}
		}
		return &u, false, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, false, err
	}

	u = models.User{Email: normalizeEmail(email), Name: name, Role: models.RoleClient}
	if err := r.Create(ctx, &u); err != nil {
		// Lost a race with a concurrent intake for the same email.
		if appErr.IsCode(err, appErr.CodeAlreadyExists) {
			var existing models.User
			if err := r.GetByEmail(ctx, email, &existing); err != nil {
				return nil, false, err
			}
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &u, true, nil
}

func (r *userRepository) List(ctx context.Context, role models.Role, page, limit int) ([]models.User, int64, error) {
	_, limit, offset := paginate(page, limit)
	q := r.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count users failed")
	}
	var out []models.User
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, translate(err, "list users failed")
	}
	return out, total, nil
}
