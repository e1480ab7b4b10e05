package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ResponseRepo records raw answer logs. Logs are append-only.
type ResponseRepo interface {
	Append(ctx context.Context, log *ResponseLog) error
	CountForStudent(ctx context.Context, studentID int64) (int64, error)
}

type responseRepo struct {
	db *gorm.DB
}

func (r *responseRepo) Append(ctx context.Context, log *ResponseLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("append response log: %w", err)
	}
	return nil
}

func (r *responseRepo) CountForStudent(ctx context.Context, studentID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&ResponseLog{}).
		Where("student_id = ?", studentID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}
