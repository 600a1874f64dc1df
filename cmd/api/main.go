package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	appbook "github.com/xiebiao/library/internal/application/book"
	"github.com/xiebiao/library/internal/application/circulation"
	appuser "github.com/xiebiao/library/internal/application/user"
	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/internal/infrastructure/config"
	"github.com/xiebiao/library/internal/infrastructure/event"
	"github.com/xiebiao/library/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/library/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/library/internal/interface/http/handler"
	"github.com/xiebiao/library/internal/interface/http/middleware"
	"github.com/xiebiao/library/pkg/clock"
	"github.com/xiebiao/library/pkg/jwt"
	"github.com/xiebiao/library/pkg/metrics"
	"github.com/xiebiao/library/pkg/response"
)

// main 主程序入口
// 说明：手动依赖注入,与wire.go中的Wire配置保持一致
// （wire gen ./cmd/api 可生成自动注入版本）
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())

	// 2. 初始化Prometheus指标
	metrics.InitMetrics()

	// 3. 初始化数据库连接
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 4. 初始化Redis连接
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 5. 初始化事件发布器
	// MQ未启用或连接失败时退化为空发布器:事件是旁路,不阻塞流通业务
	var events event.Publisher
	if cfg.MQ.Enabled {
		events, err = event.NewAMQPPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			log.Printf("连接RabbitMQ失败,事件发布降级为空操作: %v", err)
			events = event.NewNoopPublisher()
		}
	} else {
		events = event.NewNoopPublisher()
	}
	defer events.Close()

	// 6. 依赖注入（手动组装）
	// 依赖链: Repository ← Service/UseCase ← Handler

	// 基础设施层
	userRepo := mysql.NewUserRepository(db)
	bookRepo := mysql.NewBookRepository(db)
	loanRepo := mysql.NewLoanRepository(db)
	txManager := mysql.NewTxManager(db)
	sessionStore := redis.NewSessionStore(redisClient)
	availabilityCache := redis.NewAvailabilityCache(redisClient)
	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
	clk := clock.NewReal()
	policy := cfg.Circulation.Policy()

	// 领域层
	userService := user.NewService(userRepo)
	bookService := book.NewService(bookRepo)

	// 应用层
	registerUseCase := appuser.NewRegisterUseCase(userService)
	loginUseCase := appuser.NewLoginUseCase(userService, jwtManager, sessionStore)
	logoutUseCase := appuser.NewLogoutUseCase(sessionStore)
	registerBookUseCase := appbook.NewRegisterBookUseCase(bookService)
	listBooksUseCase := appbook.NewListBooksUseCase(bookService)
	getBookUseCase := appbook.NewGetBookUseCase(bookService, availabilityCache)
	manageBookUseCase := appbook.NewManageBookUseCase(bookService)
	borrowUseCase := circulation.NewBorrowUseCase(loanRepo, bookRepo, userRepo, txManager, policy, clk, events, availabilityCache)
	renewUseCase := circulation.NewRenewUseCase(loanRepo, txManager, policy, clk, events)
	returnUseCase := circulation.NewReturnUseCase(loanRepo, bookRepo, txManager, policy, clk, events, availabilityCache)
	payFineUseCase := circulation.NewPayFineUseCase(loanRepo, txManager, clk, events)
	loanQueryUseCase := circulation.NewLoanQueryUseCase(loanRepo)
	sweeper := circulation.NewOverdueSweeper(loanRepo, txManager, policy, clk, events, cfg.Circulation.SweepInterval)

	// 接口层
	userHandler := handler.NewUserHandler(registerUseCase, loginUseCase, logoutUseCase)
	bookHandler := handler.NewBookHandler(registerBookUseCase, listBooksUseCase, getBookUseCase, manageBookUseCase)
	loanHandler := handler.NewLoanHandler(borrowUseCase, renewUseCase, returnUseCase, payFineUseCase, loanQueryUseCase)
	adminHandler := handler.NewAdminHandler(sweeper, userService, clk)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, sessionStore)

	// 7. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.Metrics())

	// 8. 注册路由
	registerRoutes(r, userHandler, bookHandler, loanHandler, adminHandler, authMiddleware)

	// 9. 启动后台逾期清扫循环
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(sweepCtx)
	}()

	// 10. 启动HTTP服务(支持优雅停机)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		fmt.Printf("\n🚀 服务启动成功！\n")
		fmt.Printf("   访问地址: http://localhost%s\n", srv.Addr)
		fmt.Printf("   健康检查: http://localhost%s/ping\n", srv.Addr)
		fmt.Printf("   API文档:  http://localhost%s/swagger/index.html\n", srv.Addr)
		fmt.Printf("   指标:     http://localhost%s/metrics\n", srv.Addr)
		fmt.Printf("\n按Ctrl+C停止服务\n\n")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	// 11. 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到退出信号,开始优雅停机...")

	// 先停清扫器,再给在途请求10秒收尾
	stopSweeper()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("停机超时,强制退出: %v", err)
	}
	log.Println("服务已退出")
}

// registerRoutes 注册路由
func registerRoutes(
	r *gin.Engine,
	userHandler *handler.UserHandler,
	bookHandler *handler.BookHandler,
	loanHandler *handler.LoanHandler,
	adminHandler *handler.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger文档
	// 访问 http://localhost:8080/swagger/index.html 查看API文档
	// 生产环境建议禁用或添加访问控制
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API路由组
	v1 := r.Group("/api/v1")
	{
		// 用户模块（公开接口，不需要登录）
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
		}

		// 图书模块(查询公开,编目操作需要馆员权限)
		books := v1.Group("/books")
		{
			books.GET("", bookHandler.ListBooks)
			books.GET("/:id", bookHandler.GetBook)
			books.GET("/:id/availability", bookHandler.GetAvailability)

			librarian := books.Group("")
			librarian.Use(authMiddleware.RequireAuth(), authMiddleware.RequireLibrarian())
			{
				librarian.POST("", bookHandler.RegisterBook)
				librarian.PUT("/:id", bookHandler.UpdateInfo)
				librarian.POST("/:id/copies", bookHandler.AddCopies)
				librarian.PUT("/:id/active", bookHandler.SetActive)
			}
		}

		// 需要登录的接口
		authorized := v1.Group("")
		authorized.Use(authMiddleware.RequireAuth())
		{
			authorized.POST("/users/logout", userHandler.Logout)
			authorized.GET("/profile", userHandler.Profile)

			// 借阅模块
			loans := authorized.Group("/loans")
			{
				loans.POST("", loanHandler.Borrow)
				loans.GET("/my", loanHandler.ListMyLoans)
				loans.GET("/:id", loanHandler.GetLoan)
				loans.POST("/:id/renew", loanHandler.Renew)
				loans.POST("/:id/return", loanHandler.Return)
				loans.POST("/:id/fine/pay", loanHandler.PayFine)
			}

			// 馆员运维模块
			admin := authorized.Group("/admin")
			admin.Use(authMiddleware.RequireLibrarian())
			{
				admin.GET("/loans", loanHandler.ListLoans)
				admin.POST("/sweep", adminHandler.TriggerSweep)
				admin.PUT("/users/:id/active", adminHandler.SetUserActive)
			}
		}
	}
}
