package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/mq"
	"github.com/wyfcoding/optionpricing/pkg/utils"
)

const (
	statusPending = "pending"
	statusSent    = "sent"

	sendMaxAttempts  = 3
	sendInitialDelay = 100 * time.Millisecond
	sendMaxDelay     = time.Second
)

// OutboxMessage 事务发件箱记录, 与业务聚合在同一事务内落库
type OutboxMessage struct {
	ID           string    `gorm:"type:varchar(36);primary_key"`
	EventID      string    `gorm:"type:varchar(36);index"`
	EventType    string    `gorm:"type:varchar(100);index"`
	PartitionKey string    `gorm:"type:varchar(64)"`
	Payload      string    `gorm:"type:text"`
	Status       string    `gorm:"type:varchar(20);index;default:'pending'"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "pricing_outbox_messages"
}

// OutboxEventPublisher 以 Outbox 模式实现 messagequeue.EventPublisher。
// 事件先写库, 由 ProcessOutboxMessages 轮询投递到 Kafka。
type OutboxEventPublisher struct {
	db       *gorm.DB
	producer *mq.KafkaProducer
	topic    string
	metrics  *metrics.Metrics
}

// NewOutboxEventPublisher 创建发布器; producer 与 metrics 允许为 nil,
// 为 nil 时事件仅落库不投递。
func NewOutboxEventPublisher(db *gorm.DB, producer *mq.KafkaProducer, topic string, m *metrics.Metrics) *OutboxEventPublisher {
	return &OutboxEventPublisher{
		db:       db,
		producer: producer,
		topic:    topic,
		metrics:  m,
	}
}

// Publish 在独立的写入中登记事件
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType string, key string, payload any) error {
	return p.insert(p.db.WithContext(ctx), eventType, key, payload)
}

// PublishInTx 在调用方事务内登记事件, tx 必须是 *gorm.DB
func (p *OutboxEventPublisher) PublishInTx(ctx context.Context, tx any, eventType string, key string, payload any) error {
	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return errors.New("outbox: transaction is not *gorm.DB")
	}
	return p.insert(gormTx.WithContext(ctx), eventType, key, payload)
}

func (p *OutboxEventPublisher) insert(db *gorm.DB, eventType string, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	message := OutboxMessage{
		ID:           uuid.NewString(),
		EventID:      uuid.NewString(),
		EventType:    eventType,
		PartitionKey: key,
		Payload:      string(data),
		Status:       statusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	return db.Create(&message).Error
}

// ProcessOutboxMessages 投递一批待处理消息。
// 单条投递失败保持 pending 等待下一轮, 不中断批次。
func (p *OutboxEventPublisher) ProcessOutboxMessages(ctx context.Context, batchSize int) error {
	var messages []OutboxMessage
	if err := p.db.WithContext(ctx).
		Where("status = ?", statusPending).
		Order("created_at asc").
		Limit(batchSize).
		Find(&messages).Error; err != nil {
		return err
	}

	for i := range messages {
		message := &messages[i]
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.producer != nil {
			// 瞬时失败就地重试, 重试耗尽保持 pending 等下一轮
			err := utils.RetryWithBackoff(sendMaxAttempts, sendInitialDelay, sendMaxDelay, func() error {
				return p.producer.SendMessage(ctx, p.topic, message.PartitionKey, json.RawMessage(message.Payload))
			})
			if err != nil {
				logger.Warn(ctx, "outbox relay failed", "message_id", message.ID, "event_type", message.EventType, "error", err)
				continue
			}
		}
		if err := p.db.WithContext(ctx).Model(message).
			Updates(map[string]any{"status": statusSent, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.OutboxRelayedTotal.Inc()
		}
	}

	if p.metrics != nil {
		var pending int64
		if err := p.db.WithContext(ctx).Model(&OutboxMessage{}).
			Where("status = ?", statusPending).
			Count(&pending).Error; err == nil {
			p.metrics.OutboxPendingGauge.Set(float64(pending))
		}
	}
	return nil
}

// CleanupProcessedMessages 清理投递完成且早于 before 的消息
func (p *OutboxEventPublisher) CleanupProcessedMessages(ctx context.Context, before time.Time) error {
	return p.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", statusSent, before).
		Delete(&OutboxMessage{}).Error
}
