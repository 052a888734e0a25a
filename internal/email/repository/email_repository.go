package repository

import (
	"errors"
	"time"

	emaildomain "mailiq-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// emailRepository implements EmailRepository interface
type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new instance of emailRepository
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{
		db: db,
	}
}

func (r *emailRepository) Create(email *emaildomain.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.CreatedAt = time.Now()
	email.UpdatedAt = time.Now()
	err := r.db.Create(email).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return emaildomain.ErrDuplicateEmail
	}
	return err
}

func (r *emailRepository) FindByGmailID(gmailID string) (*emaildomain.Email, error) {
	var email emaildomain.Email
	err := r.db.Where("gmail_id = ?", gmailID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) FindByID(userID, id string) (*emaildomain.Email, error) {
	var email emaildomain.Email
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) FindByUser(userID string, page, limit int) ([]*emaildomain.Email, int64, error) {
	var total int64
	if err := r.db.Model(&emaildomain.Email{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var emails []*emaildomain.Email
	err := r.db.Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&emails).Error
	if err != nil {
		return nil, 0, err
	}
	return emails, total, nil
}

func (r *emailRepository) FindRefsByUser(userID string) ([]emaildomain.EmailRef, error) {
	var refs []emaildomain.EmailRef
	err := r.db.Model(&emaildomain.Email{}).
		Select("id", "gmail_id").
		Where("user_id = ?", userID).
		Find(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *emailRepository) FindFromsByUser(userID string) ([]*emaildomain.Email, error) {
	var emails []*emaildomain.Email
	err := r.db.Model(&emaildomain.Email{}).
		Select("id", "gmail_id", `"from"`).
		Where("user_id = ?", userID).
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *emailRepository) FindByIDs(userID string, ids []string) ([]*emaildomain.Email, error) {
	if len(ids) == 0 {
		return []*emaildomain.Email{}, nil
	}
	var emails []*emaildomain.Email
	err := r.db.Where("id IN ? AND user_id = ?", ids, userID).
		Order("date DESC").
		Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *emailRepository) DeleteByIDs(userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Where("id IN ? AND user_id = ?", ids, userID).Delete(&emaildomain.Email{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *emailRepository) MarkAsRead(userID, id string) error {
	return r.db.Model(&emaildomain.Email{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "updated_at": time.Now()}).Error
}
