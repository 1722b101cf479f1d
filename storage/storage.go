package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskboard-api/domain"
)

// Sentinel errors returned by the store. Handlers map these onto the wire
// error taxonomy.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("duplicate record")
	ErrForeignKey = errors.New("related record missing")
)

// Store persists the task tracker entities through GORM. All task, project
// and tag operations are scoped to an owning user id; a resource owned by
// someone else behaves exactly like a missing one.
type Store struct {
	db *gorm.DB
}

// New opens the sqlite database at dsn and migrates the schema. Foreign keys
// are switched on so project deletion cascades to tasks and task deletion
// cascades to tag associations.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// The foreign_keys pragma is per-connection, and an in-memory database
	// exists per-connection too. Pin the pool to one connection; sqlite
	// serializes writers anyway.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Project{}, &domain.Tag{}, &domain.Task{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// TaskFilter narrows and pages a task listing.
type TaskFilter struct {
	ProjectID string
	Status    domain.Status
	Page      int
	Limit     int
}

// ItemResult reports the outcome of one entry in a bulk update. Items are
// applied independently; callers can discover partial success instead of a
// single aggregate failure.
type ItemResult struct {
	ID      string `json:"id"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// TaskPatch carries a partial task update. Nil fields are left untouched; a
// non-nil TagIDs fully replaces the task's tag associations.
type TaskPatch struct {
	Title          *string
	Description    *string
	ProjectID      *string
	Status         *domain.Status
	Priority       *domain.Priority
	Deadline       *time.Time
	Order          *int
	EstimatedHours *float64
	ActualHours    *float64
	TagIDs         *[]string
}

// ProjectPatch carries a partial project update.
type ProjectPatch struct {
	Name        *string
	Description *string
	Color       *string
	Status      *domain.ProjectStatus
}

// ListTasks returns one page of the user's tasks with project and tags
// expanded, plus the total count before paging.
func (s *Store) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]domain.Task, int64, error) {
	q := s.db.WithContext(ctx).Model(&domain.Task{}).Where("user_id = ?", userID)
	if f.ProjectID != "" {
		q = q.Where("project_id = ?", f.ProjectID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Preload("Project").Preload("Tags").
		Order("status").Order("sort_order").Order("created_at")
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * f.Limit).Limit(f.Limit)
	}

	var tasks []domain.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// GetTask fetches one task owned by the user. Tasks owned by anyone else are
// reported as not found.
func (s *Store) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	var task domain.Task
	err := s.db.WithContext(ctx).Preload("Project").Preload("Tags").
		Where("id = ? AND user_id = ?", id, userID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// CreateTask persists a new task in the TODO lane, ranked after the user's
// current TODO tasks. The project and all referenced tags must exist and be
// owned by the user.
func (s *Store) CreateTask(ctx context.Context, userID string, task *domain.Task, tagIDs []string) (*domain.Task, error) {
	db := s.db.WithContext(ctx)

	var project domain.Project
	if err := db.Where("id = ? AND user_id = ?", task.ProjectID, userID).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForeignKey
		}
		return nil, err
	}

	tags, err := s.tagsOwnedBy(ctx, userID, tagIDs)
	if err != nil {
		return nil, err
	}

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.UserID = userID
	if task.Status == "" {
		task.Status = domain.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}

	var maxOrder *int
	err = db.Model(&domain.Task{}).
		Where("user_id = ? AND status = ?", userID, domain.StatusTodo).
		Select("MAX(sort_order)").Scan(&maxOrder).Error
	if err != nil {
		return nil, err
	}
	if maxOrder != nil {
		task.Order = *maxOrder + 1
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Project").Create(task).Error; err != nil {
			return translateError(err)
		}
		if len(tags) > 0 {
			if err := tx.Model(task).Association("Tags").Append(tags); err != nil {
				return translateError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, userID, task.ID)
}

// UpdateTask applies a partial update to an owned task. A status transition
// into DONE stamps CompletedAt; a transition out of DONE clears it. A non-nil
// TagIDs replaces the association set wholesale: existing links are dropped
// and the provided ones inserted, never diffed.
func (s *Store) UpdateTask(ctx context.Context, userID, id string, patch TaskPatch) (*domain.Task, error) {
	var task domain.Task
	db := s.db.WithContext(ctx)
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.ProjectID != nil && *patch.ProjectID != task.ProjectID {
		var project domain.Project
		if err := db.Where("id = ? AND user_id = ?", *patch.ProjectID, userID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrForeignKey
			}
			return nil, err
		}
		task.ProjectID = *patch.ProjectID
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		task.Deadline = patch.Deadline
	}
	if patch.Order != nil {
		task.Order = *patch.Order
	}
	if patch.EstimatedHours != nil {
		task.EstimatedHours = *patch.EstimatedHours
	}
	if patch.ActualHours != nil {
		task.ActualHours = *patch.ActualHours
	}
	if patch.Status != nil {
		applyStatus(&task, *patch.Status, time.Now().UTC())
	}

	var tags []domain.Tag
	if patch.TagIDs != nil {
		var err error
		tags, err = s.tagsOwnedBy(ctx, userID, *patch.TagIDs)
		if err != nil {
			return nil, err
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Project").Save(&task).Error; err != nil {
			return translateError(err)
		}
		if patch.TagIDs != nil {
			if err := tx.Model(&task).Association("Tags").Replace(tags); err != nil {
				return translateError(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTask(ctx, userID, id)
}

// DeleteTask removes an owned task. Tag associations go with it via the join
// table's cascade; nothing else is touched.
func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderTasks applies (status, order) updates item by item with no aggregate
// transaction. Each entry succeeds or fails on its own and the result list
// reports which did what.
func (s *Store) ReorderTasks(ctx context.Context, userID string, items []domain.TaskPosition) []ItemResult {
	results := make([]ItemResult, len(items))
	now := time.Now().UTC()
	for i, item := range items {
		results[i] = ItemResult{ID: item.ID}
		if !item.Status.Valid() {
			results[i].Error = "invalid status"
			continue
		}
		if err := s.reorderOne(ctx, userID, item, now); err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Applied = true
	}
	return results
}

func (s *Store) reorderOne(ctx context.Context, userID string, item domain.TaskPosition, now time.Time) error {
	var task domain.Task
	db := s.db.WithContext(ctx)
	if err := db.Where("id = ? AND user_id = ?", item.ID, userID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	applyStatus(&task, item.Status, now)
	task.Order = item.Order
	return db.Omit("Tags", "Project").Save(&task).Error
}

func applyStatus(task *domain.Task, next domain.Status, now time.Time) {
	if task.Status != domain.StatusDone && next == domain.StatusDone {
		completed := now
		task.CompletedAt = &completed
	} else if task.Status == domain.StatusDone && next != domain.StatusDone {
		task.CompletedAt = nil
	}
	task.Status = next
}

// ListProjects returns all of the user's projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	var projects []domain.Project
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at").Find(&projects).Error
	return projects, err
}

// GetProject fetches one owned project.
func (s *Store) GetProject(ctx context.Context, userID, id string) (*domain.Project, error) {
	var project domain.Project
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// CreateProject persists a new project for the user.
func (s *Store) CreateProject(ctx context.Context, userID string, project *domain.Project) (*domain.Project, error) {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.UserID = userID
	if project.Status == "" {
		project.Status = domain.ProjectActive
	}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, translateError(err)
	}
	return project, nil
}

// UpdateProject applies a partial update to an owned project.
func (s *Store) UpdateProject(ctx context.Context, userID, id string, patch ProjectPatch) (*domain.Project, error) {
	project, err := s.GetProject(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		project.Name = *patch.Name
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.Color != nil {
		project.Color = *patch.Color
	}
	if patch.Status != nil {
		project.Status = *patch.Status
	}
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, translateError(err)
	}
	return project, nil
}

// DeleteProject removes an owned project. Its tasks, and their tag
// associations, go with it through the storage cascade.
func (s *Store) DeleteProject(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Project{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTags returns all of the user's tags ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("name").Find(&tags).Error
	return tags, err
}

// CreateTag persists a new tag. Tag names are unique per user; a clash maps
// to ErrDuplicate.
func (s *Store) CreateTag(ctx context.Context, userID string, tag *domain.Tag) (*domain.Tag, error) {
	if tag.ID == "" {
		tag.ID = uuid.NewString()
	}
	tag.UserID = userID
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, translateError(err)
	}
	return tag, nil
}

// DeleteTag removes an owned tag and its task associations.
func (s *Store) DeleteTag(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Tag{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertUser stores or refreshes the caller's profile record.
func (s *Store) UpsertUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GetUser fetches a profile record.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) tagsOwnedBy(ctx context.Context, userID string, tagIDs []string) ([]domain.Tag, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	var tags []domain.Tag
	err := s.db.WithContext(ctx).Where("user_id = ? AND id IN ?", userID, tagIDs).Find(&tags).Error
	if err != nil {
		return nil, err
	}
	if len(tags) != len(tagIDs) {
		return nil, ErrForeignKey
	}
	return tags, nil
}

// translateError maps driver constraint failures onto the store's sentinel
// errors. The sqlite driver reports the constraint class in the message text.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return ErrForeignKey
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return ErrForeignKey
	}
	return err
}
