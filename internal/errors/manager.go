// Package errors records per-page transcoding failures for a document run.
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrorStage 出错阶段
type ErrorStage string

const (
	StageDecode     ErrorStage = "decode"     // 解析字形流
	StageClassify   ErrorStage = "classify"   // 版面区域分类
	StageGroup      ErrorStage = "group"      // 段落/公式分组
	StageTranslate  ErrorStage = "translate"  // 翻译（含占位符校验）
	StageSynthesize ErrorStage = "synthesize" // 生成绘制指令
	StageWrite      ErrorStage = "write"      // 写回页面内容流
)

// NoParagraph marks a failure that is not tied to a single paragraph.
const NoParagraph = -1

// ErrorRecord 单页失败记录
type ErrorRecord struct {
	Page      int        `json:"page"`      // 从 0 开始的页码
	Paragraph int        `json:"paragraph"` // 段落序号，-1 表示整页
	Stage     ErrorStage `json:"stage"`
	ErrorMsg  string     `json:"error_msg"`
	Attempts  int        `json:"attempts,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// ErrorManager accumulates failure records for one document run. A page is
// recorded at most once; the latest failure wins.
type ErrorManager struct {
	path   string
	mu     sync.RWMutex
	errors map[int]*ErrorRecord // key: page
}

// NewErrorManager creates a manager. If path is non-empty, records are
// loaded from it and every change is written back.
func NewErrorManager(path string) (*ErrorManager, error) {
	em := &ErrorManager{
		path:   path,
		errors: make(map[int]*ErrorRecord),
	}
	if path == "" {
		return em, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := em.load(); err != nil {
		return nil, err
	}
	return em, nil
}

// RecordError 记录某页失败
func (em *ErrorManager) RecordError(page, paragraph int, stage ErrorStage, attempts int, cause error) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	em.errors[page] = &ErrorRecord{
		Page:      page,
		Paragraph: paragraph,
		Stage:     stage,
		ErrorMsg:  msg,
		Attempts:  attempts,
		Timestamp: time.Now(),
	}
	return em.save()
}

// RemoveError drops the record for a page that later succeeded.
func (em *ErrorManager) RemoveError(page int) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if _, ok := em.errors[page]; !ok {
		return nil
	}
	delete(em.errors, page)
	return em.save()
}

// ListErrors returns copies of all records ordered by page.
func (em *ErrorManager) ListErrors() []*ErrorRecord {
	em.mu.RLock()
	defer em.mu.RUnlock()

	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		recordCopy := *record
		records = append(records, &recordCopy)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Page < records[j].Page })
	return records
}

// FailedPages returns the sorted page indices with a failure record.
func (em *ErrorManager) FailedPages() []int {
	records := em.ListErrors()
	pages := make([]int, len(records))
	for i, r := range records {
		pages[i] = r.Page
	}
	return pages
}

func (em *ErrorManager) GetError(page int) (*ErrorRecord, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()

	record, ok := em.errors[page]
	if !ok {
		return nil, false
	}
	recordCopy := *record
	return &recordCopy, true
}

func (em *ErrorManager) Count() int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.errors)
}

func (em *ErrorManager) ClearAll() error {
	em.mu.Lock()
	defer em.mu.Unlock()

	em.errors = make(map[int]*ErrorRecord)
	return em.save()
}

func (em *ErrorManager) load() error {
	data, err := os.ReadFile(em.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read failure report: %w", err)
	}

	var records []*ErrorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to unmarshal failure report: %w", err)
	}
	for _, record := range records {
		em.errors[record.Page] = record
	}
	return nil
}

// save must be called with mu held.
func (em *ErrorManager) save() error {
	if em.path == "" {
		return nil
	}

	records := make([]*ErrorRecord, 0, len(em.errors))
	for _, record := range em.errors {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Page < records[j].Page })

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal failure report: %w", err)
	}
	if err := os.WriteFile(em.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write failure report: %w", err)
	}
	return nil
}

// GetStageDisplayName 获取阶段的显示名称
func GetStageDisplayName(stage ErrorStage) string {
	switch stage {
	case StageDecode:
		return "字形解析"
	case StageClassify:
		return "版面分析"
	case StageGroup:
		return "段落分组"
	case StageTranslate:
		return "翻译"
	case StageSynthesize:
		return "指令生成"
	case StageWrite:
		return "页面写回"
	default:
		return string(stage)
	}
}
