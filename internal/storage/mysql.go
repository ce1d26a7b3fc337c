package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	applog "talent-match-go/internal/logger"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/tracing"
)

var mysqlTracer = otel.Tracer("talent-match-go/storage/mysql")

// gormTracingPlugin 向GORM操作注入OpenTelemetry追踪点
type gormTracingPlugin struct {
	dbName string
}

func (p *gormTracingPlugin) Name() string {
	return "otelGormPlugin"
}

// Initialize 为CRUD操作批量注册前后回调
func (p *gormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.startSpan("CREATE")); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.endSpan); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.startSpan("SELECT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.endSpan); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.startSpan("UPDATE")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.endSpan); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.startSpan("DELETE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.endSpan); err != nil {
		return err
	}
	return nil
}

func (p *gormTracingPlugin) startSpan(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		newCtx, _ := mysqlTracer.Start(ctx, fmt.Sprintf("%s %s", operation, tableName),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)
		db.Statement.Context = newCtx
	}
}

func (p *gormTracingPlugin) endSpan(db *gorm.DB) {
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	defer span.End()

	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	if sql := db.Statement.SQL.String(); sql != "" {
		// 占位符形式的SQL，截断后上报避免超长属性
		span.SetAttributes(attribute.String("db.statement", tracing.TruncateString(sql, tracing.MaxSQLLength)))
	}
	if db.Error != nil {
		if errors.Is(db.Error, gorm.ErrRecordNotFound) {
			// 未命中记录属于正常业务路径
			span.SetStatus(codes.Ok, "record not found")
		} else {
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
		return
	}
	span.SetStatus(codes.Ok, "")
}

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 3:
		logLevel = gormlogger.Warn
	default:
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(&gormTracingPlugin{dbName: cfg.Database}); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	applog.Info().Str("database", cfg.Database).Msg("成功连接到MySQL并完成表结构迁移")
	return m, nil
}

func (m *MySQL) autoMigrateSchema() error {
	return m.db.AutoMigrate(
		&models.Candidate{},
		&models.Job{},
		&models.Application{},
		&models.ResumeSubmission{},
		&models.OutboxMessage{},
	)
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetJobByID 获取岗位记录
func (m *MySQL) GetJobByID(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).First(&job, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob 创建岗位记录
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	return m.db.WithContext(ctx).Create(job).Error
}

// GetCandidateByID 获取候选人记录
func (m *MySQL) GetCandidateByID(ctx context.Context, candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := m.db.WithContext(ctx).First(&candidate, "candidate_id = ?", candidateID).Error; err != nil {
		return nil, err
	}
	return &candidate, nil
}

// UpsertCandidate 按主键冲突更新候选人记录
func (m *MySQL) UpsertCandidate(ctx context.Context, candidate *models.Candidate) error {
	return m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		UpdateAll: true,
	}).Create(candidate).Error
}

// ListCandidatesByIDs 批量获取候选人
func (m *MySQL) ListCandidatesByIDs(ctx context.Context, candidateIDs []string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if len(candidateIDs) == 0 {
		return candidates, nil
	}
	err := m.db.WithContext(ctx).Where("candidate_id IN ?", candidateIDs).Find(&candidates).Error
	return candidates, err
}

// ListApplicantsForJob 列出岗位下所有申请的候选人
func (m *MySQL) ListApplicantsForJob(ctx context.Context, jobID string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := m.db.WithContext(ctx).
		Joins("JOIN applications ON applications.candidate_id = candidates.candidate_id").
		Where("applications.job_id = ?", jobID).
		Find(&candidates).Error
	return candidates, err
}

// ListActiveJobs 列出所有开放中的岗位
func (m *MySQL) ListActiveJobs(ctx context.Context, limit int) ([]models.Job, error) {
	var jobs []models.Job
	q := m.db.WithContext(ctx).Where("status = ?", constants.JobStatusActive)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobs).Error
	return jobs, err
}

// SaveMatchScores 将评估结果写回申请记录
// 同一事务内更新所有申请；未出现在 scores 中的申请保持原状
func (m *MySQL) SaveMatchScores(ctx context.Context, jobID string, scores map[string]ScorePayload) error {
	if len(scores) == 0 {
		return nil
	}
	now := time.Now()
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for candidateID, payload := range scores {
			updates := map[string]any{
				"llm_match_score":   payload.Score,
				"llm_reasons_json":  payload.ReasonsJSON,
				"evaluation_status": constants.EvaluationStatusScored,
				"evaluation_error":  "",
				"evaluated_at":      &now,
			}
			if err := tx.Model(&models.Application{}).
				Where("job_id = ? AND candidate_id = ?", jobID, candidateID).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ScorePayload 写回申请记录的评估载荷
type ScorePayload struct {
	Score       int
	ReasonsJSON []byte
}

// MarkApplicationsFailed 将岗位下待评估的申请标记为失败并记录失败原因
// 只写状态与原因不写分数，失败时绝不落伪造数据
func (m *MySQL) MarkApplicationsFailed(ctx context.Context, jobID string, detail string) error {
	return m.db.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ? AND evaluation_status = ?", jobID, constants.EvaluationStatusPending).
		Updates(map[string]any{
			"evaluation_status": constants.EvaluationStatusFailed,
			"evaluation_error":  detail,
		}).Error
}

// CreateResumeSubmission 创建简历提交记录
func (m *MySQL) CreateResumeSubmission(ctx context.Context, submission *models.ResumeSubmission) error {
	return m.db.WithContext(ctx).Create(submission).Error
}

// UpdateResumeProcessingStatus 更新简历处理状态
func (m *MySQL) UpdateResumeProcessingStatus(ctx context.Context, submissionUUID, status, errMsg string) error {
	return m.db.WithContext(ctx).Model(&models.ResumeSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(map[string]any{"processing_status": status, "error_message": errMsg}).Error
}

// CreateOutboxMessage 在给定事务内写入发件箱消息
// 与业务写入同事务提交，由 relay 轮询投递
func (m *MySQL) CreateOutboxMessage(tx *gorm.DB, msg *models.OutboxMessage) error {
	if tx == nil {
		tx = m.db
	}
	return tx.Create(msg).Error
}
