package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gorm.io/gorm"

	"cdpsession/pkg/model"
	"cdpsession/pkg/traffic"
)

// ArchivedRecord 归档的请求记录
type ArchivedRecord struct {
	ID           uint   `gorm:"primaryKey"`
	SessionID    string `gorm:"index;size:64"`
	RecordID     string `gorm:"size:64"`
	URL          string
	Method       string `gorm:"size:16"`
	Headers      string // JSON 数组 [{"name":..,"value":..}]
	Body         []byte
	HasBody      bool
	ResourceType string    `gorm:"size:32"`
	RecordedAt   time.Time `gorm:"index"`
	ArchivedAt   time.Time
}

// Archive 会话请求历史的持久化存储
type Archive struct {
	db  *gorm.DB
	now func() time.Time
}

// NewArchive 基于已打开的数据库创建归档
func NewArchive(db *gorm.DB) *Archive {
	return &Archive{db: db, now: time.Now}
}

// Save 将一批记录写入归档，返回写入条数
func (a *Archive) Save(ctx context.Context, id model.SessionID, records []traffic.RequestRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	archivedAt := a.now()
	rows := make([]ArchivedRecord, 0, len(records))
	for _, r := range records {
		headers, err := encodeHeaders(r.Headers)
		if err != nil {
			return 0, fmt.Errorf("encode headers of %s: %w", r.ID, err)
		}
		rows = append(rows, ArchivedRecord{
			SessionID:    string(id),
			RecordID:     r.ID,
			URL:          r.URL,
			Method:       r.Method,
			Headers:      headers,
			Body:         r.Body,
			HasBody:      r.Body != nil,
			ResourceType: r.ResourceType,
			RecordedAt:   r.Timestamp,
			ArchivedAt:   archivedAt,
		})
	}
	if err := a.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// List 按记录时间顺序读取会话的归档记录
func (a *Archive) List(ctx context.Context, id model.SessionID) ([]traffic.RequestRecord, error) {
	var rows []ArchivedRecord
	err := a.db.WithContext(ctx).
		Where("session_id = ?", string(id)).
		Order("recorded_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]traffic.RequestRecord, 0, len(rows))
	for _, row := range rows {
		rec := traffic.RequestRecord{
			ID:           row.RecordID,
			URL:          row.URL,
			Method:       row.Method,
			Headers:      decodeHeaders(row.Headers),
			ResourceType: row.ResourceType,
			Timestamp:    row.RecordedAt,
		}
		if row.HasBody {
			rec.Body = append([]byte{}, row.Body...)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Purge 删除会话的全部归档记录
func (a *Archive) Purge(ctx context.Context, id model.SessionID) (int64, error) {
	res := a.db.WithContext(ctx).Where("session_id = ?", string(id)).Delete(&ArchivedRecord{})
	return res.RowsAffected, res.Error
}

func encodeHeaders(h traffic.Headers) (string, error) {
	out := "[]"
	for _, f := range h {
		var err error
		out, err = sjson.Set(out, "-1", f)
		if err != nil {
			return "", err
		}
	}
	return out, nil
}

func decodeHeaders(s string) traffic.Headers {
	h := traffic.Headers{}
	gjson.Parse(s).ForEach(func(_, v gjson.Result) bool {
		h.Add(v.Get("name").String(), v.Get("value").String())
		return true
	})
	return h
}
