package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"deckforge/internal/util"
	"deckforge/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &GenerationModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// UpsertUser creates the user on first contact and refreshes the display
// name and handle on every later one.
func (s *GormStore) UpsertUser(u domain.User) (domain.User, error) {
	model := UserModel{
		ID:        u.ID,
		ChatID:    u.ChatID,
		Name:      u.Name,
		Username:  u.Username,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
	if model.ID == "" {
		model.ID = util.NewID()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "username"}),
	}).Create(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	var stored UserModel
	if err := s.db.First(&stored, "chat_id = ?", u.ChatID).Error; err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	return userFromModel(stored), nil
}

// GetUserByChatID returns the user owning the chat-platform id.
func (s *GormStore) GetUserByChatID(chatID int64) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "chat_id = ?", chatID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SetUserPhone records the phone number completing registration.
func (s *GormStore) SetUserPhone(userID, phone string) error {
	return s.db.Model(&UserModel{}).Where("id = ?", userID).Update("phone", phone).Error
}

type windowRow struct {
	Count  int64
	Oldest sql.NullTime
}

// CountWindow aggregates non-failed generations created at or after since.
func (s *GormStore) CountWindow(userID string, since time.Time) (WindowUsage, error) {
	row, err := s.countWindow(s.db, userID, since)
	if err != nil {
		return WindowUsage{}, fmt.Errorf("count window: %w", err)
	}
	return row, nil
}

func (s *GormStore) countWindow(tx *gorm.DB, userID string, since time.Time) (WindowUsage, error) {
	var row windowRow
	err := tx.Model(&GenerationModel{}).
		Select("COUNT(*) AS count, MIN(created_at) AS oldest").
		Where("user_id = ? AND created_at >= ? AND status <> ?", userID, since, string(domain.GenerationFailed)).
		Scan(&row).Error
	if err != nil {
		return WindowUsage{}, err
	}
	usage := WindowUsage{Count: int(row.Count)}
	if row.Oldest.Valid {
		usage.Oldest = row.Oldest.Time
	}
	return usage, nil
}

// ReserveGeneration serializes concurrent attempts for one user behind a
// SELECT ... FOR UPDATE on the user row, recounts the window under the lock,
// and inserts the pending record only while under the limit. Without the lock
// two concurrent requests could both observe count < limit and both insert.
func (s *GormStore) ReserveGeneration(gen domain.Generation, since time.Time, limit int) (bool, WindowUsage, error) {
	var (
		inserted bool
		usage    WindowUsage
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var owner UserModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&owner, "id = ?", gen.UserID).Error; err != nil {
			return fmt.Errorf("lock user row: %w", err)
		}
		row, err := s.countWindow(tx, gen.UserID, since)
		if err != nil {
			return fmt.Errorf("count window: %w", err)
		}
		usage = row
		if row.Count >= limit {
			return nil
		}
		model, err := generationToModel(gen)
		if err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, WindowUsage{}, err
	}
	return inserted, usage, nil
}

// GetGeneration returns a generation record by id.
func (s *GormStore) GetGeneration(id string) (domain.Generation, bool, error) {
	var model GenerationModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Generation{}, false, nil
		}
		return domain.Generation{}, false, err
	}
	gen, err := generationFromModel(model)
	if err != nil {
		return domain.Generation{}, false, err
	}
	return gen, true, nil
}

// SetGenerationStatus unconditionally moves the record to status.
func (s *GormStore) SetGenerationStatus(id string, status domain.GenerationStatus) error {
	return s.db.Model(&GenerationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

// SetGenerationStatusIfPending is the idempotent guard used by error paths.
func (s *GormStore) SetGenerationStatusIfPending(id string, status domain.GenerationStatus) (bool, error) {
	res := s.db.Model(&GenerationModel{}).
		Where("id = ? AND status = ?", id, string(domain.GenerationPending)).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateGenerationMeta replaces the metadata blob.
func (s *GormStore) UpdateGenerationMeta(id string, meta domain.GenerationMeta) error {
	blob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	return s.db.Model(&GenerationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"meta":       blob,
			"updated_at": time.Now().UTC(),
		}).Error
}

// FailAllPending resolves crash residue: a pending record surviving past the
// process that created it cannot be trusted.
func (s *GormStore) FailAllPending() (int64, error) {
	res := s.db.Model(&GenerationModel{}).
		Where("status = ?", string(domain.GenerationPending)).
		Updates(map[string]any{
			"status":     string(domain.GenerationFailed),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Name:      m.Name,
		Username:  m.Username,
		Phone:     m.Phone,
		CreatedAt: m.CreatedAt,
	}
}

func generationToModel(g domain.Generation) (GenerationModel, error) {
	blob, err := json.Marshal(g.Meta)
	if err != nil {
		return GenerationModel{}, fmt.Errorf("marshal meta: %w", err)
	}
	return GenerationModel{
		ID:        g.ID,
		UserID:    g.UserID,
		Status:    string(g.Status),
		Meta:      blob,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}, nil
}

func generationFromModel(m GenerationModel) (domain.Generation, error) {
	gen := domain.Generation{
		ID:        m.ID,
		UserID:    m.UserID,
		Status:    domain.GenerationStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if len(m.Meta) > 0 {
		if err := json.Unmarshal(m.Meta, &gen.Meta); err != nil {
			return domain.Generation{}, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return gen, nil
}
