// Package event 领域事件发布
//
// 流通引擎在借出/续借/归还/逾期/缴费成功后发布事件到RabbitMQ,
// 供催还通知、报表等下游系统异步消费。发布是尽力而为的旁路:
// 经过熔断器保护,Broker故障时快速失败并只记日志,
// 绝不让已提交的借阅事务跟着失败。
package event

import (
	"context"
	"log"
	"time"

	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/pkg/circuitbreaker"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/mq"
)

// 路由键定义(Topic Exchange: library.events)
const (
	RoutingKeyLoanCreated  = "loan.created"
	RoutingKeyLoanRenewed  = "loan.renewed"
	RoutingKeyLoanReturned = "loan.returned"
	RoutingKeyLoanOverdue  = "loan.overdue"
	RoutingKeyFinePaid     = "loan.fine_paid"
)

// LoanEvent 借阅领域事件载荷
type LoanEvent struct {
	Type       string     `json:"type"`        // 路由键同值(loan.created等)
	LoanID     uint       `json:"loan_id"`
	BookID     uint       `json:"book_id"`
	UserID     uint       `json:"user_id"`
	Status     string     `json:"status"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Renewals   int        `json:"renewals"`
	FineAmount int64      `json:"fine_amount_cents"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// newLoanEvent 从借阅实体构建事件载荷
func newLoanEvent(eventType string, l *loan.Loan, occurredAt time.Time) *LoanEvent {
	return &LoanEvent{
		Type:       eventType,
		LoanID:     l.ID,
		BookID:     l.BookID,
		UserID:     l.UserID,
		Status:     l.Status.String(),
		DueDate:    l.DueDate,
		ReturnedAt: l.ReturnedAt,
		Renewals:   l.Renewals,
		FineAmount: l.FineAmount,
		OccurredAt: occurredAt,
	}
}

// Publisher 领域事件发布接口
// 用例层只依赖这个接口:生产环境是AMQP实现,
// MQ未启用或测试时用Noop实现
type Publisher interface {
	// PublishLoanEvent 发布借阅事件(尽力而为,失败只记日志)
	PublishLoanEvent(ctx context.Context, eventType string, l *loan.Loan)

	// Close 释放底层连接
	Close() error
}

// =========================================
// AMQP实现
// =========================================

// amqpPublisher 基于RabbitMQ的事件发布实现
// 熔断策略:连续5次发布失败打开熔断器,30秒后半开探测,
// 熔断期间事件直接丢弃(计入rejected指标)
type amqpPublisher struct {
	publisher *mq.Publisher
	breaker   *circuitbreaker.CircuitBreaker
}

// NewAMQPPublisher 创建AMQP事件发布者
func NewAMQPPublisher(url, exchange string) (Publisher, error) {
	pub, err := mq.NewPublisher(url, exchange, "topic")
	if err != nil {
		return nil, err
	}

	cb := circuitbreaker.NewCircuitBreaker("event-publisher", circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		log.Printf("熔断器[%s]状态变化: %s -> %s", name, from, to)
		metrics.SetGaugeVec(metrics.CircuitBreakerState, map[string]string{"name": name}, float64(to))
	})

	return &amqpPublisher{publisher: pub, breaker: cb}, nil
}

// PublishLoanEvent 发布借阅事件
// 任何失败(包括熔断拒绝)只记日志和指标,不向调用方返回错误:
// 事件发布永远不阻塞、不失败流通事务
func (p *amqpPublisher) PublishLoanEvent(ctx context.Context, eventType string, l *loan.Loan) {
	evt := newLoanEvent(eventType, l, time.Now())

	err := p.breaker.Execute(func() error {
		return p.publisher.Publish(eventType, evt)
	})

	labels := map[string]string{"routing_key": eventType, "result": "success"}
	switch {
	case err == nil:
	case err == circuitbreaker.ErrOpenState:
		labels["result"] = "rejected"
		log.Printf("事件发布被熔断器拒绝: type=%s loan_id=%d", eventType, l.ID)
	default:
		labels["result"] = "failure"
		log.Printf("事件发布失败: type=%s loan_id=%d err=%v", eventType, l.ID, err)
	}
	metrics.IncCounterVec(metrics.EventsPublishedTotal, labels)
}

// Close 关闭底层连接
func (p *amqpPublisher) Close() error {
	return p.publisher.Close()
}

// =========================================
// Noop实现(MQ未启用/测试)
// =========================================

// NoopPublisher 空实现
type NoopPublisher struct{}

// NewNoopPublisher 创建空事件发布者
func NewNoopPublisher() Publisher {
	return &NoopPublisher{}
}

func (*NoopPublisher) PublishLoanEvent(ctx context.Context, eventType string, l *loan.Loan) {}

func (*NoopPublisher) Close() error { return nil }
