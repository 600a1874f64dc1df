package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/library/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明:
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数(MaxOpenConns、MaxIdleConns、ConnMaxLifetime)
// 3. 开发环境开启SQL日志,生产环境关闭
// 4. 自动迁移表结构(AutoMigrate)
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Println("数据库连接成功")

	// 自动迁移表结构(开发环境)
	// 注意:生产环境应使用专门的迁移工具(如golang-migrate)
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// AutoMigrate只会创建表、添加字段,不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&LoanModel{},
	)
}

// UserModel GORM用户模型
// 设计说明:
// 1. 这是infrastructure层的数据模型,包含GORM tag
// 2. domain/user/entity.go是领域实体,不依赖GORM
// 3. Repository负责两者之间的转换
type UserModel struct {
	ID        uint           `gorm:"primaryKey"`
	Email     string         `gorm:"uniqueIndex;size:100;not null;comment:邮箱"`
	Password  string         `gorm:"size:255;not null;comment:密码(bcrypt加密)"`
	Nickname  string         `gorm:"size:50;not null;comment:昵称"`
	Role      string         `gorm:"size:20;not null;default:USER;comment:角色(USER/LIBRARIAN/ADMIN)"`
	Active    bool           `gorm:"not null;default:true;comment:账户是否启用"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// BookModel GORM图书模型
// 设计说明:
// 1. 副本不逐本追踪,只存计数:total_copies馆藏总数、available_copies可借数
// 2. available_copies的借还变更只通过原子条件更新(见book_repo.go),
//    保证 0 <= available_copies <= total_copies 在并发下不被破坏
// 3. ISBN有唯一索引,防止重复编目
type BookModel struct {
	ID              uint           `gorm:"primaryKey"`
	ISBN            string         `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Title           string         `gorm:"index:idx_search;size:200;not null;comment:书名"`
	Author          string         `gorm:"index:idx_search;size:100;not null;comment:作者"`
	Publisher       string         `gorm:"size:100;not null;comment:出版社"`
	TotalCopies     int            `gorm:"not null;default:0;comment:馆藏总副本数"`
	AvailableCopies int            `gorm:"not null;default:0;comment:当前可借副本数"`
	Active          bool           `gorm:"not null;default:true;comment:是否在流通中"`
	LoanCount       int64          `gorm:"index;not null;default:0;comment:历史借出总次数"`
	Description     string         `gorm:"type:text;comment:图书描述"`
	CreatedAt       time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt       time.Time      `gorm:"comment:更新时间"`
	DeletedAt       gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}

// LoanModel GORM借阅模型
// 设计说明:
// 1. 借阅记录是历史档案,只创建只更新,永不删除(没有DeletedAt)
// 2. (status, due_date)复合索引支撑清扫扫描:
//    WHERE status = 'ACTIVE' AND due_date < ?
// 3. (user_id, status)和(book_id, status)复合索引支撑
//    在借数量统计(借阅上限、一致性校验)
type LoanModel struct {
	ID         uint       `gorm:"primaryKey"`
	BookID     uint       `gorm:"index:idx_book_status;not null;comment:图书ID"`
	UserID     uint       `gorm:"index:idx_user_status;not null;comment:读者ID"`
	LoanDate   time.Time  `gorm:"not null;comment:借出日"`
	DueDate    time.Time  `gorm:"index:idx_status_due,priority:2;not null;comment:到期日"`
	ReturnedAt *time.Time `gorm:"comment:归还时刻(未归还为NULL)"`
	Status     string     `gorm:"index:idx_book_status,priority:2;index:idx_user_status,priority:2;index:idx_status_due,priority:1;size:20;not null;comment:借阅状态"`
	Renewals   int        `gorm:"not null;default:0;comment:已续借次数"`
	FineAmount int64      `gorm:"not null;default:0;comment:罚款金额(分)"`
	FinePaid   bool       `gorm:"not null;default:false;comment:罚款是否已结清"`
	CreatedAt  time.Time  `gorm:"comment:创建时间"`
	UpdatedAt  time.Time  `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (LoanModel) TableName() string {
	return "loans"
}
