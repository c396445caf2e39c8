package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func TestAdjustStock_Decrements(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1 WHERE id = $2 AND stock + $3 >= 0`)).
		WithArgs(-2, id, -2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AdjustStock(context.Background(), id, -2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock_InsufficientStock(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := repo.AdjustStock(context.Background(), id, -5)
	assert.True(t, errors.Is(err, repository.ErrInsufficientStock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock_MissingProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := repo.AdjustStock(context.Background(), uuid.New(), -1)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestProductFindByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	p, err := repo.FindByID(context.Background(), uuid.New())
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestProductFindByID_ScansDecimalPrice(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	id, seller := uuid.New(), uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "price", "category", "stock", "image_url", "active", "seller_id", "created_at", "updated_at"}).
		AddRow(id, "Espada Longa", "", "149.90", "Espadas", 3, "", true, seller, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE id = $1`)).
		WillReturnRows(rows)

	p, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("149.90").Equal(p.Price))
	assert.Equal(t, seller, p.SellerID)
}

func TestProductSearch_CountsThenPages(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "products" WHERE active = $1 AND category = $2`)).
		WithArgs(true, "Gamer").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" WHERE active = $1 AND category = $2 ORDER BY name ASC,id ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "category", "active"}).
			AddRow(uuid.New(), "Mouse", "99.00", "Gamer", true))

	items, total, err := repo.Search(context.Background(), models.ProductFilter{Category: "Gamer"}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpdate_NeverWritesStock(t *testing.T) {
	var statements []string
	matcher := sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
		statements = append(statements, actualSQL)
		return sqlmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL)
	})
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(matcher))
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET .* WHERE id = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.Update(context.Background(), &models.Product{
		ID:       uuid.New(),
		Name:     "Teclado",
		Price:    decimal.RequireFromString("129.90"),
		Category: "Gamer",
		Stock:    3,
		Active:   true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, statements, 1)
	assert.Contains(t, statements[0], `"price"=`)
	assert.NotContains(t, statements[0], "stock")
}

func TestProductFindByIDForUpdate_LocksRow(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock", "active"}).
			AddRow(id, "Teclado", "129.90", 3, true))

	p, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductSetStock_MissingProduct(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormProductRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=$1 WHERE id = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.SetStock(context.Background(), uuid.New(), 7)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestOrderUpdateStatus_StatusChanged(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusPendente, models.OrderStatusPago)
	assert.True(t, errors.Is(err, repository.ErrStatusChanged))
}

func TestOrderUpdateStatus_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormOrderRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateStatus(context.Background(), uuid.New(), models.OrderStatusPago, models.OrderStatusEnviado)
	assert.NoError(t, err)
}

func TestUserFindByEmail_NormalizesCase(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormUserRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE LOWER(email) = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "active"}).
			AddRow(uuid.New(), "ana@example.com", "Comum", true))

	u, err := repo.FindByEmail(context.Background(), "  Ana@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleComum, u.Role)
}

func TestStore_WithinTransactionRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTransaction(context.Background(), func(tx repository.Store) error {
		if err := tx.Products().AdjustStock(context.Background(), uuid.New(), -1); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, errors.Is(err, boom))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeadlockIsConcurrentUpdate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1`)).
		WillReturnError(&pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
	mock.ExpectRollback()

	err := store.WithinTransaction(context.Background(), func(tx repository.Store) error {
		return tx.Products().AdjustStock(context.Background(), uuid.New(), -1)
	})
	assert.True(t, errors.Is(err, repository.ErrConcurrentUpdate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_OtherErrorsPassThrough(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	store := repository.NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "stock"=stock + $1`)).
		WillReturnError(&pgconn.PgError{Code: "23514", Message: "check constraint"})
	mock.ExpectRollback()

	err := store.WithinTransaction(context.Background(), func(tx repository.Store) error {
		return tx.Products().AdjustStock(context.Background(), uuid.New(), -1)
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrConcurrentUpdate))
}
