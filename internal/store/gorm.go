package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeStudio/internal/database"
	"resumeStudio/internal/resume"
	"resumeStudio/internal/section"
)

// GormStore 基于 GORM 的 ResumeStore 实现。
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GormStore。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, id uint) (*resume.Record, error) {
	var row database.Resume
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query resume %d: %w", id, err)
	}
	rec := fromRow(row)
	return &rec, nil
}

func (s *GormStore) Set(ctx context.Context, rec *resume.Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	row := toRow(*rec)

	if rec.ID == 0 {
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("insert resume: %w", err)
		}
		*rec = fromRow(row)
		return nil
	}

	// 整体替换：除主键与创建时间外的所有列，零值同样写入
	row.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ?", rec.ID).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("replace resume %d: %w", rec.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&database.Resume{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete resume %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context) ([]resume.Record, error) {
	var rows []database.Resume
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	out := make([]resume.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

func toRow(rec resume.Record) database.Resume {
	doc := rec.Document.Normalize()
	d := doc.Data
	layout := section.Normalize(doc.Sections.Order, doc.Sections.Active)

	row := database.Resume{
		Personal:       datatypes.NewJSONType(d.Personal),
		Summary:        d.Summary,
		Experience:     datatypes.JSONSlice[resume.Experience](d.Experience),
		Education:      datatypes.JSONSlice[resume.Education](d.Education),
		Skills:         datatypes.JSONSlice[resume.Skill](d.Skills),
		Projects:       datatypes.JSONSlice[resume.Project](d.Projects),
		Certifications: datatypes.JSONSlice[resume.Certification](d.Certifications),
		Achievements:   datatypes.JSONSlice[resume.Achievement](d.Achievements),
		Interests:      d.Interests,
		Languages:      datatypes.JSONSlice[string](d.Languages),
		SectionOrder:   datatypes.JSONSlice[string](section.Keys(layout.Order)),
		ActiveSection:  layout.Active.String(),
		Template:       doc.Template,
		ImageURL:       rec.ImageURL,
		ImageKey:       rec.ImageKey,
		PdfKey:         rec.PDFKey,
		PreviewKey:     rec.PreviewKey,
	}
	row.ID = rec.ID
	return row
}

func fromRow(row database.Resume) resume.Record {
	data := resume.Data{
		Personal:       row.Personal.Data(),
		Summary:        row.Summary,
		Experience:     []resume.Experience(row.Experience),
		Education:      []resume.Education(row.Education),
		Skills:         []resume.Skill(row.Skills),
		Projects:       []resume.Project(row.Projects),
		Certifications: []resume.Certification(row.Certifications),
		Achievements:   []resume.Achievement(row.Achievements),
		Interests:      row.Interests,
		Languages:      []string(row.Languages),
	}

	// 未知分区键在读取时丢弃，再由 Normalize 补齐固定前缀与内置分区
	var order []section.Kind
	for _, key := range row.SectionOrder {
		if k, err := section.ParseKind(key); err == nil {
			order = append(order, k)
		}
	}
	active, _ := section.ParseKind(row.ActiveSection)

	return resume.Record{
		ID: row.ID,
		Document: resume.Document{
			Data:     data.Normalize(),
			Sections: section.Normalize(order, active),
			Template: row.Template,
		},
		ImageURL:   row.ImageURL,
		ImageKey:   row.ImageKey,
		PDFKey:     row.PdfKey,
		PreviewKey: row.PreviewKey,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
