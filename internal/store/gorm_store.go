package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"campuspass/pkg/domain"
)

// pendingFirst surfaces items awaiting a decision at the top of the
// department head's dashboard, newest first within each group.
const pendingFirst = "CASE WHEN status = 'pending' THEN 0 ELSE 1 END, created_at DESC"

// createAttempts bounds retries when a generated request id collides.
const createAttempts = 5

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &RequestModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"roll", "name", "password_hash", "role", "photo_key"}),
	}).Create(&model).Error
}

// HasRoll checks if a roll number is already registered.
func (s *GormStore) HasRoll(roll string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("roll = ?", roll).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByRoll looks up a user by roll number.
func (s *GormStore) GetUserByRoll(roll string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("roll = ?", roll).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateRequest assigns a fresh short id, persists the record as pending and
// returns it. Id collisions are detected via the primary key and retried.
func (s *GormStore) CreateRequest(r domain.Request) (domain.Request, error) {
	now := time.Now().UTC()
	r.Status = domain.StatusPending
	r.CreatedAt = now
	r.UpdatedAt = now
	for attempt := 0; attempt < createAttempts; attempt++ {
		r.ID = NewRequestID()
		model, err := requestToModel(r)
		if err != nil {
			return domain.Request{}, err
		}
		err = s.db.Create(&model).Error
		if err == nil {
			return r, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			continue
		}
		return domain.Request{}, fmt.Errorf("create request: %w", err)
	}
	return domain.Request{}, errors.New("create request: id collisions exhausted retries")
}

// ListByOwner returns all requests submitted by one user, newest first.
func (s *GormStore) ListByOwner(ownerID string) ([]domain.Request, error) {
	return s.listRequests("created_at DESC", "owner_id = ?", ownerID)
}

// ListAll returns every request with pending items first.
func (s *GormStore) ListAll() ([]domain.Request, error) {
	return s.listRequests(pendingFirst)
}

func (s *GormStore) listRequests(order string, conds ...any) ([]domain.Request, error) {
	var models []RequestModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Request, 0, len(models))
	for _, m := range models {
		res = append(res, requestFromModel(m))
	}
	return res, nil
}

// GetRequest retrieves a request by its identifier.
func (s *GormStore) GetRequest(id string) (domain.Request, bool, error) {
	var model RequestModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Request{}, false, nil
		}
		return domain.Request{}, false, err
	}
	return requestFromModel(model), true, nil
}

// Approve transitions a pending request to approved. Re-approving an already
// approved request is a no-op; an unknown id yields ErrNotFound. The row is
// locked for the duration of the transaction so concurrent readers never see
// a half-written transition.
func (s *GormStore) Approve(id string) (domain.Request, error) {
	var out domain.Request
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model RequestModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if model.Status != string(domain.StatusApproved) {
			model.Status = string(domain.StatusApproved)
			model.UpdatedAt = time.Now().UTC()
			if err := tx.Model(&RequestModel{}).
				Where("id = ?", model.ID).
				Updates(map[string]any{
					"status":     model.Status,
					"updated_at": model.UpdatedAt,
				}).Error; err != nil {
				return err
			}
		}
		out = requestFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Request{}, err
	}
	return out, nil
}
