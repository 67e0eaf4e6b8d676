// Package messagequeue 定义领域事件发布接口
package messagequeue

import "context"

// EventPublisher 领域事件发布接口。
// Publish 直接发布事件；PublishInTx 在业务事务内将事件写入 Outbox，
// tx 为底层事务句柄（如 *gorm.DB），由具体实现断言类型。
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
	PublishInTx(ctx context.Context, tx any, eventType string, key string, payload any) error
}
