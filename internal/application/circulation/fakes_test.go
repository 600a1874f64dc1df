package circulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/library/internal/domain/book"
	"github.com/xiebiao/library/internal/domain/loan"
	"github.com/xiebiao/library/internal/domain/user"
	"github.com/xiebiao/library/pkg/clock"
	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 内存版仓储与事务实现,行为对齐MySQL实现的关键语义:
// - ReserveCopy/ReleaseCopy是带条件判定的原子操作(互斥锁模拟行锁)
// - Find/Lock返回副本,实体变更必须经Update才可见(模拟行快照)

// fakeTxManager 直通事务(测试用)
type fakeTxManager struct{}

func (fakeTxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =========================================
// 图书仓储
// =========================================

type fakeBookRepo struct {
	mu    sync.Mutex
	books map[uint]*book.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[uint]*book.Book)}
}

func (r *fakeBookRepo) put(b *book.Book) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.books[b.ID] = &cp
}

func (r *fakeBookRepo) get(id uint) *book.Book {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[id]; ok {
		cp := *b
		return &cp
	}
	return nil
}

func (r *fakeBookRepo) Create(ctx context.Context, b *book.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = uint(len(r.books) + 1)
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *fakeBookRepo) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	if b := r.get(id); b != nil {
		return b, nil
	}
	return nil, book.ErrBookNotFound
}

func (r *fakeBookRepo) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.books {
		if b.ISBN == isbn {
			cp := *b
			return &cp, nil
		}
	}
	return nil, book.ErrBookNotFound
}

func (r *fakeBookRepo) Update(ctx context.Context, b *book.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[b.ID]; !ok {
		return book.ErrBookNotFound
	}
	cp := *b
	r.books[b.ID] = &cp
	return nil
}

func (r *fakeBookRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) List(ctx context.Context, params book.ListParams) ([]*book.Book, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*book.Book
	for _, b := range r.books {
		cp := *b
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeBookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeBookRepo) ReserveCopy(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	if !b.Active {
		return book.ErrBookInactive
	}
	if b.AvailableCopies <= 0 {
		return book.ErrOutOfStock
	}
	b.AvailableCopies--
	return nil
}

func (r *fakeBookRepo) ReleaseCopy(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	if b.AvailableCopies >= b.TotalCopies {
		return book.ErrConsistencyViolation
	}
	b.AvailableCopies++
	return nil
}

func (r *fakeBookRepo) IncrLoanCount(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.books[id]
	if !ok {
		return book.ErrBookNotFound
	}
	b.LoanCount++
	return nil
}

// =========================================
// 借阅仓储
// =========================================

type fakeLoanRepo struct {
	mu     sync.Mutex
	loans  map[uint]*loan.Loan
	nextID uint
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[uint]*loan.Loan), nextID: 1}
}

func (r *fakeLoanRepo) put(l *loan.Loan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == 0 {
		l.ID = r.nextID
		r.nextID++
	}
	cp := *l
	r.loans[l.ID] = &cp
}

func (r *fakeLoanRepo) get(id uint) *loan.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.loans[id]; ok {
		cp := *l
		return &cp
	}
	return nil
}

func (r *fakeLoanRepo) Create(ctx context.Context, l *loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = r.nextID
	r.nextID++
	cp := *l
	r.loans[l.ID] = &cp
	return nil
}

func (r *fakeLoanRepo) FindByID(ctx context.Context, id uint) (*loan.Loan, error) {
	if l := r.get(id); l != nil {
		return l, nil
	}
	return nil, loan.ErrLoanNotFound
}

func (r *fakeLoanRepo) LockByID(ctx context.Context, id uint) (*loan.Loan, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeLoanRepo) Update(ctx context.Context, l *loan.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[l.ID]; !ok {
		return loan.ErrLoanNotFound
	}
	cp := *l
	r.loans[l.ID] = &cp
	return nil
}

func (r *fakeLoanRepo) CountOutstandingByUser(ctx context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.loans {
		if l.UserID == userID && l.Status.IsOutstanding() {
			n++
		}
	}
	return n, nil
}

func (r *fakeLoanRepo) CountOutstandingByBook(ctx context.Context, bookID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.loans {
		if l.BookID == bookID && l.Status.IsOutstanding() {
			n++
		}
	}
	return n, nil
}

func (r *fakeLoanRepo) HasOutstandingForBook(ctx context.Context, userID, bookID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loans {
		if l.UserID == userID && l.BookID == bookID && l.Status.IsOutstanding() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLoanRepo) HasUnpaidFines(ctx context.Context, userID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loans {
		if l.UserID == userID && l.FineAmount > 0 && !l.FinePaid {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeLoanRepo) FindDueBefore(ctx context.Context, asOf time.Time) ([]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint
	for _, l := range r.loans {
		if l.Status.IsOutstanding() && l.DueDate.Before(asOf) {
			ids = append(ids, l.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeLoanRepo) ListByUser(ctx context.Context, userID uint, params loan.ListParams) ([]*loan.Loan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*loan.Loan
	for _, l := range r.loans {
		if l.UserID != userID {
			continue
		}
		if params.Status != "" && l.Status != params.Status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLoanRepo) ListByStatus(ctx context.Context, status loan.Status, params loan.ListParams) ([]*loan.Loan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*loan.Loan
	for _, l := range r.loans {
		if status != "" && l.Status != status {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// =========================================
// 用户仓储
// =========================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*user.User)}
}

func (r *fakeUserRepo) put(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uint(len(r.users) + 1)
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, u *user.User) error {
	r.put(u)
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// =========================================
// 事件采集
// =========================================

type capturedEvent struct {
	Type   string
	LoanID uint
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func newFakeEventPublisher() *fakeEventPublisher {
	return &fakeEventPublisher{}
}

func (p *fakeEventPublisher) PublishLoanEvent(ctx context.Context, eventType string, l *loan.Loan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{Type: eventType, LoanID: l.ID})
}

func (p *fakeEventPublisher) Close() error { return nil }

func (p *fakeEventPublisher) byType(eventType string) []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// =========================================
// 测试环境组装
// =========================================

type testEnv struct {
	loanRepo *fakeLoanRepo
	bookRepo *fakeBookRepo
	userRepo *fakeUserRepo
	events   *fakeEventPublisher
	clk      *clock.Manual
	policy   loan.Policy

	borrow  *BorrowUseCase
	renew   *RenewUseCase
	ret     *ReturnUseCase
	payFine *PayFineUseCase
	sweeper *OverdueSweeper
	queries *LoanQueryUseCase
}

func newTestEnv(now time.Time) *testEnv {
	env := &testEnv{
		loanRepo: newFakeLoanRepo(),
		bookRepo: newFakeBookRepo(),
		userRepo: newFakeUserRepo(),
		events:   newFakeEventPublisher(),
		clk:      clock.NewManual(now),
		policy:   loan.DefaultPolicy(),
	}

	tx := fakeTxManager{}
	env.borrow = NewBorrowUseCase(env.loanRepo, env.bookRepo, env.userRepo, tx, env.policy, env.clk, env.events, nil)
	env.renew = NewRenewUseCase(env.loanRepo, tx, env.policy, env.clk, env.events)
	env.ret = NewReturnUseCase(env.loanRepo, env.bookRepo, tx, env.policy, env.clk, env.events, nil)
	env.payFine = NewPayFineUseCase(env.loanRepo, tx, env.clk, env.events)
	env.sweeper = NewOverdueSweeper(env.loanRepo, tx, env.policy, env.clk, env.events, 0)
	env.queries = NewLoanQueryUseCase(env.loanRepo)
	return env
}

// addUser 添加启用的读者
func (env *testEnv) addUser(id uint) {
	env.userRepo.put(&user.User{ID: id, Email: "reader@lib.cn", Nickname: "读者", Role: user.RoleUser, Active: true})
}

// addBook 添加流通中的图书
func (env *testEnv) addBook(id uint, total, available int) {
	env.bookRepo.put(&book.Book{
		ID: id, ISBN: "9787115428028", Title: "Go语言实战",
		TotalCopies: total, AvailableCopies: available, Active: true,
	})
}
