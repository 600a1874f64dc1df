//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 说明：
// 1. Wire是Google开发的编译期依赖注入工具
// 2. 与运行时反射注入不同，Wire在编译期生成代码
// 3. 优势：零运行时开销、类型安全、编译期检测循环依赖
//
// 工作流程：
// Step 1: 编写wire.go（本文件），定义Providers和Injector
// Step 2: 运行 `wire gen ./cmd/api`
// Step 3: Wire生成wire_gen.go，包含完整的依赖创建代码
// Step 4: main.go调用wire_gen.go中的InitializeApp()

package main

import (
	"log"
	"time"

	"github.com/google/wire"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/application/circulation"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/clock"
	"github.com/xiebiao/library/pkg/jwt"

	goredis "github.com/redis/go-redis/v9"
)

// ========================================
// Wire Provider Sets (依赖分组)
// ========================================

// infrastructureSet 基础设施层依赖
// 包含：配置加载、数据库连接、Redis连接、事件发布器
var infrastructureSet = wire.NewSet(
	config.Load,          // 加载配置文件
	mysql.NewDB,          // 创建MySQL连接
	redis.NewClient,      // 创建Redis连接
	provideEventPublisher, // 创建事件发布器(MQ不可用时退化为空操作)
)

// repositorySet 仓储层依赖
var repositorySet = wire.NewSet(
	mysql.NewUserRepository, // 用户仓储
	mysql.NewBookRepository, // 图书仓储
	mysql.NewLoanRepository, // 借阅仓储
	mysql.NewTxManager,      // 事务管理器
	wire.Bind(new(circulation.TxManager), new(*mysql.TxManager)),
)

// domainSet 领域层依赖
var domainSet = wire.NewSet(
	user.NewService, // 用户领域服务
	book.NewService, // 图书领域服务
	provideClock,    // 时钟(续借/罚款计算的时间源)
	providePolicy,   // 借阅策略
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	appuser.NewRegisterUseCase,        // 读者注册用例
	appuser.NewLoginUseCase,           // 用户登录用例
	appuser.NewLogoutUseCase,          // 用户登出用例
	appbook.NewRegisterBookUseCase,    // 图书入馆用例
	appbook.NewListBooksUseCase,       // 图书列表用例
	appbook.NewGetBookUseCase,         // 图书详情/可借状态用例
	appbook.NewManageBookUseCase,      // 馆藏管理用例
	circulation.NewBorrowUseCase,      // 借书用例
	circulation.NewRenewUseCase,       // 续借用例
	circulation.NewReturnUseCase,      // 还书用例
	circulation.NewPayFineUseCase,     // 缴费用例
	circulation.NewLoanQueryUseCase,   // 借阅查询用例
	circulation.NewOverdueSweeper,     // 逾期清扫器
	provideSweepInterval,              // 清扫周期
	wire.Bind(new(circulation.AvailabilityInvalidator), new(*redis.AvailabilityCache)),
)

// middlewareSet 中间件依赖
var middlewareSet = wire.NewSet(
	provideJWTManager,            // JWT管理器（需要从config提取参数）
	provideSessionStore,          // Session存储
	provideAvailabilityCache,     // 可借状态缓存
	middleware.NewAuthMiddleware, // 认证中间件
)

// handlerSet HTTP处理器依赖
var handlerSet = wire.NewSet(
	handler.NewUserHandler,  // 用户处理器
	handler.NewBookHandler,  // 图书处理器
	handler.NewLoanHandler,  // 借阅处理器
	handler.NewAdminHandler, // 馆员运维处理器
)

// ========================================
// Custom Providers (自定义Provider)
// ========================================

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideSessionStore 从Redis客户端创建Session存储
func provideSessionStore(client *goredis.Client) *redis.SessionStore {
	return redis.NewSessionStore(client)
}

// provideAvailabilityCache 从Redis客户端创建可借状态缓存
func provideAvailabilityCache(client *goredis.Client) *redis.AvailabilityCache {
	return redis.NewAvailabilityCache(client)
}

// provideClock 真实时钟(测试中用clock.Manual替代)
func provideClock() clock.Clock {
	return clock.NewReal()
}

// providePolicy 从配置生成借阅策略
func providePolicy(cfg *config.Config) loan.Policy {
	return cfg.Circulation.Policy()
}

// provideSweepInterval 清扫周期
func provideSweepInterval(cfg *config.Config) time.Duration {
	return cfg.Circulation.SweepInterval
}

// provideEventPublisher 创建事件发布器
// MQ未启用或连接失败时退化为空发布器:事件是旁路,不阻塞流通业务
func provideEventPublisher(cfg *config.Config) event.Publisher {
	if !cfg.MQ.Enabled {
		return event.NewNoopPublisher()
	}
	pub, err := event.NewAMQPPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		log.Printf("连接RabbitMQ失败,事件发布降级为空操作: %v", err)
		return event.NewNoopPublisher()
	}
	return pub
}

// ========================================
// Wire Injector (依赖注入器)
// ========================================

// App 组装完成的应用依赖
// Injector的返回值只能有一个业务对象,把启动需要的
// 各个部件收拢到一个结构里
type App struct {
	Config       *config.Config
	UserHandler  *handler.UserHandler
	BookHandler  *handler.BookHandler
	LoanHandler  *handler.LoanHandler
	AdminHandler *handler.AdminHandler
	Auth         *middleware.AuthMiddleware
	Sweeper      *circulation.OverdueSweeper
	Events       event.Publisher
}

// InitializeApp 初始化整个应用
// Wire会在wire_gen.go中生成实际的初始化代码
func InitializeApp() (*App, error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		domainSet,
		applicationSet,
		middlewareSet,
		handlerSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
