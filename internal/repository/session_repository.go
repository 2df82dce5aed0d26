package repository

import (
	"errors"
	"time"

	"github.com/meja-pos/internal/models"

	"gorm.io/gorm"
)

// SessionRepository 桌台会话数据访问接口
type SessionRepository interface {
	Create(session *models.OrderSession) error
	GetByID(id uint) (*models.OrderSession, error)
	GetOpenByTable(tableID uint) (*models.OrderSession, error)
	ListByStatus(status string) ([]models.OrderSession, error)
	List(filter SessionListFilter) ([]models.OrderSession, int64, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	UpdateFields(id uint, updates map[string]interface{}) error
	StatsSince(since time.Time) (SessionStatsRow, error)
	WithTx(tx *gorm.DB) *GormSessionRepository
}

// SessionStatsRow 会话统计结果行
type SessionStatsRow struct {
	OpenCount      int64
	ClosedCount    int64
	AbandonedCount int64
	ClosedRevenue  models.Money
}

// GormSessionRepository GORM 实现
type GormSessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSessionRepository) WithTx(tx *gorm.DB) *GormSessionRepository {
	if tx == nil {
		return r
	}
	return &GormSessionRepository{db: tx}
}

// Create 创建会话
func (r *GormSessionRepository) Create(session *models.OrderSession) error {
	return r.db.Create(session).Error
}

// GetByID 根据 ID 获取会话
func (r *GormSessionRepository) GetByID(id uint) (*models.OrderSession, error) {
	var session models.OrderSession
	if err := r.db.Preload("Orders").Preload("Orders.Items").First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetOpenByTable 获取桌台当前 OPEN 会话（openTab 幂等保证的依据）
func (r *GormSessionRepository) GetOpenByTable(tableID uint) (*models.OrderSession, error) {
	var session models.OrderSession
	if err := r.db.Preload("Orders").Preload("Orders.Items").
		Where("table_id = ? AND status = ?", tableID, "open").
		Order("id asc").
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// ListByStatus 按状态列出会话
func (r *GormSessionRepository) ListByStatus(status string) ([]models.OrderSession, error) {
	var sessions []models.OrderSession
	if err := r.db.Preload("Orders").Preload("Orders.Items").
		Where("status = ?", status).
		Order("opened_at asc").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// List 会话列表
func (r *GormSessionRepository) List(filter SessionListFilter) ([]models.OrderSession, int64, error) {
	var sessions []models.OrderSession
	query := r.db.Model(&models.OrderSession{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TableID != 0 {
		query = query.Where("table_id = ?", filter.TableID)
	}
	if filter.OpenedFrom != nil {
		query = query.Where("opened_at >= ?", *filter.OpenedFrom)
	}
	if filter.OpenedTo != nil {
		query = query.Where("opened_at <= ?", *filter.OpenedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if err := query.Preload("Orders").Order("id desc").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// UpdateStatus 更新会话状态
func (r *GormSessionRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.OrderSession{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateFields 更新会话字段
func (r *GormSessionRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&models.OrderSession{}).Where("id = ?", id).Updates(updates).Error
}

// StatsSince 统计自某时刻以来各状态会话数与已结台营收
func (r *GormSessionRepository) StatsSince(since time.Time) (SessionStatsRow, error) {
	var row SessionStatsRow

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := r.db.Model(&models.OrderSession{}).
		Select("status, count(*) as count").
		Where("opened_at >= ?", since).
		Group("status").
		Scan(&counts).Error; err != nil {
		return row, err
	}
	for _, c := range counts {
		switch c.Status {
		case "open":
			row.OpenCount = c.Count
		case "closed":
			row.ClosedCount = c.Count
		case "abandoned":
			row.AbandonedCount = c.Count
		}
	}

	var revenue struct {
		Total models.Money
	}
	if err := r.db.Model(&models.OrderSession{}).
		Select("coalesce(sum(total_amount), 0) as total").
		Where("opened_at >= ? AND status = ?", since, "closed").
		Scan(&revenue).Error; err != nil {
		return row, err
	}
	row.ClosedRevenue = revenue.Total
	return row, nil
}
